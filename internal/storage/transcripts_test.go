// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verdora/verdora-tui/internal/model"
	"github.com/verdora/verdora-tui/internal/sse"
)

func openStore(t *testing.T, keep int) *TranscriptStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "transcripts.db"), keep)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// sessionWithTurns builds a session with n completed question/answer turns.
func sessionWithTurns(n int) *model.Session {
	sess := model.NewSession()
	for i := 1; i <= n; i++ {
		_, msg, _ := sess.BeginTurn(fmt.Sprintf("question %d sur l'arrosage", i))
		msg.Apply(sse.Event{Kind: sse.KindToken, Text: fmt.Sprintf("réponse %d", i)})
		msg.Apply(sse.Event{Kind: sse.KindDone, Intent: "conseil"})
	}
	return sess
}

func TestSaveAndLoadSession(t *testing.T) {
	store := openStore(t, 0)
	sess := sessionWithTurns(2)

	require.NoError(t, store.SaveSession(sess))

	loaded, err := store.LoadSession(sess.ID)
	require.NoError(t, err)

	require.Equal(t, sess.ID, loaded.ID)
	require.Equal(t, "question 1 sur l'arrosage", loaded.Summary)
	require.Len(t, loaded.Messages, 4)
	require.Equal(t, "user", loaded.Messages[0].Role)
	require.Equal(t, "réponse 1", loaded.Messages[1].Content)
	require.Equal(t, "conseil", loaded.Messages[1].Intent)
	require.Equal(t, "complete", loaded.Messages[1].Status)
}

func TestSaveSkipsStreamingMessages(t *testing.T) {
	store := openStore(t, 0)
	sess := sessionWithTurns(1)

	// A turn still in flight has no durable form yet.
	_, streaming, _ := sess.BeginTurn("question en cours")
	streaming.Apply(sse.Event{Kind: sse.KindToken, Text: "partiel"})

	require.NoError(t, store.SaveSession(sess))

	loaded, err := store.LoadSession(sess.ID)
	require.NoError(t, err)
	// 2 from the completed turn + the new user message; not the streaming reply.
	require.Len(t, loaded.Messages, 3)
	for _, msg := range loaded.Messages {
		require.NotEqual(t, "streaming", msg.Status)
	}
}

func TestSaveSessionIsIdempotentSnapshot(t *testing.T) {
	store := openStore(t, 0)
	sess := sessionWithTurns(1)

	require.NoError(t, store.SaveSession(sess))
	require.NoError(t, store.SaveSession(sess))

	loaded, err := store.LoadSession(sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2, "re-save duplicated messages")
}

func TestSavePersistsFeedbackAndEscalation(t *testing.T) {
	store := openStore(t, 0)

	sess := model.NewSession()
	_, msg, _ := sess.BeginTurn("Mes plants sont malades")
	msg.Apply(sse.Event{Kind: sse.KindToken, Text: "Contactez-nous"})
	msg.Apply(sse.Event{Kind: sse.KindDone, Intent: "urgence", Escalate: true})
	require.True(t, msg.SetFeedback(model.FeedbackPositive))

	require.NoError(t, store.SaveSession(sess))

	loaded, err := store.LoadSession(sess.ID)
	require.NoError(t, err)
	reply := loaded.Messages[1]
	require.True(t, reply.Escalated)
	require.Equal(t, "urgence", reply.Intent)
	require.Equal(t, "positive", reply.Feedback)
}

func TestList(t *testing.T) {
	store := openStore(t, 0)

	first := sessionWithTurns(1)
	second := sessionWithTurns(2)
	require.NoError(t, store.SaveSession(first))
	require.NoError(t, store.SaveSession(second))

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	// Most recently saved first.
	require.Equal(t, second.ID, metas[0].ID)
	require.Equal(t, 4, metas[0].MessageCount)
}

func TestSearch(t *testing.T) {
	store := openStore(t, 0)

	gazon := model.NewSession()
	_, msg, _ := gazon.BeginTurn("Quel gazon pour l'ombre ?")
	msg.Apply(sse.Event{Kind: sse.KindToken, Text: "Le gazon rustique convient."})
	msg.Apply(sse.Event{Kind: sse.KindDone})
	require.NoError(t, store.SaveSession(gazon))
	require.NoError(t, store.SaveSession(sessionWithTurns(1)))

	metas, err := store.Search("GAZON")
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, gazon.ID, metas[0].ID)

	all, err := store.Search("")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestDelete(t *testing.T) {
	store := openStore(t, 0)
	sess := sessionWithTurns(1)
	require.NoError(t, store.SaveSession(sess))

	require.NoError(t, store.Delete(sess.ID))

	_, err := store.LoadSession(sess.ID)
	require.True(t, errors.Is(err, ErrSessionNotFound))
	require.True(t, errors.Is(store.Delete(sess.ID), ErrSessionNotFound))
}

func TestRetentionLimit(t *testing.T) {
	store := openStore(t, 2)

	var ids []string
	for i := 0; i < 4; i++ {
		sess := sessionWithTurns(1)
		require.NoError(t, store.SaveSession(sess))
		ids = append(ids, sess.ID)
	}

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)

	// The two oldest are gone, messages cascaded away with them.
	_, err = store.LoadSession(ids[0])
	require.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = store.LoadSession(ids[3])
	require.NoError(t, err)
}
