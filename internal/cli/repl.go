// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the plain-terminal mode of the Verdora assistant.
// It covers environments where the full-screen interface cannot run: piped
// output, dumb terminals and accessibility setups that work better with a
// scrolling transcript. Input history and line editing come from liner.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"golang.org/x/text/unicode/norm"

	"github.com/verdora/verdora-tui/internal/assistant"
	"github.com/verdora/verdora-tui/internal/config"
	"github.com/verdora/verdora-tui/internal/escalate"
	"github.com/verdora/verdora-tui/internal/export"
	"github.com/verdora/verdora-tui/internal/model"
	"github.com/verdora/verdora-tui/internal/storage"
	"github.com/verdora/verdora-tui/internal/voice"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// Input wraps liner with persistent history in the config directory.
type Input struct {
	line        *liner.State
	historyFile string
}

// NewInput creates the line editor and loads prior history.
func NewInput() *Input {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &Input{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

// Read reads one line, recording non-empty input in the history.
func (in *Input) Read(prompt string) (string, error) {
	text, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		in.line.AppendHistory(text)
	}
	return text, nil
}

// Close persists history and restores the terminal.
func (in *Input) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// REPL SESSION
// =============================================================================

// REPL holds the state of one plain-mode conversation.
type REPL struct {
	cfg     *config.Config
	client  *assistant.Client
	store   *storage.TranscriptStore // nil when storage is disabled
	voice   voice.Engine             // nil when no recognizer is configured
	session *model.Session
	input   *Input
	logger  *log.Logger
}

// New assembles the plain-mode session.
func New(cfg *config.Config, client *assistant.Client, store *storage.TranscriptStore, voiceEngine voice.Engine, logger *log.Logger) *REPL {
	return &REPL{
		cfg:     cfg,
		client:  client,
		store:   store,
		voice:   voiceEngine,
		session: model.NewSessionWithWindow(cfg.Assistant.HistoryWindow),
		input:   NewInput(),
		logger:  logger,
	}
}

// Run drives the read-ask-print loop until the user leaves.
func (r *REPL) Run() error {
	defer r.input.Close()
	defer r.persist()

	fmt.Println("🌿 Verdora, votre assistant jardin")
	fmt.Println("Tapez /aide pour les commandes, /quitter pour sortir.")
	fmt.Println()

	// Ctrl+C during a streamed reply interrupts the reply, not the
	// program. Outside a reply, liner surfaces it as ErrPromptAborted.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			r.session.CancelActive()
		}
	}()

	for {
		text, err := r.input.Read("verdora> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				continue
			}
			// EOF leaves cleanly.
			fmt.Println()
			return nil
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			quit, err := r.runCommand(text)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Erreur : %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		r.ask(text)
	}
}

// =============================================================================
// TURN HANDLING
// =============================================================================

// ask runs one turn synchronously and prints the reply incrementally.
func (r *REPL) ask(text string) {
	printer := newStreamPrinter(os.Stdout)

	fmt.Println()
	final := r.client.Send(context.Background(), r.session, text, printer.Update)
	printer.Finish()

	switch final.Status {
	case model.StatusError:
		fmt.Println(final.ContentText())
	case model.StatusAborted:
		fmt.Println("[Réponse interrompue]")
	case model.StatusComplete:
		r.printCompletion(final)
	}
	fmt.Println()
}

// printCompletion shows suggestions and the hand-off card after a reply.
func (r *REPL) printCompletion(msg *model.Message) {
	if len(msg.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("Suggestions :")
		for i, s := range msg.Suggestions {
			fmt.Printf("  %d. %s\n", i+1, s)
		}
	}

	h := escalate.Derive(msg, escalate.Contact{
		Phone:    r.cfg.Contact.Phone,
		WhatsApp: r.cfg.Contact.WhatsApp,
	})
	if h != nil {
		fmt.Println()
		fmt.Println("Parlez à un conseiller :")
		fmt.Println("  Téléphone : " + h.Phone)
		if h.WhatsAppLink != "" {
			fmt.Println("  WhatsApp  : " + h.WhatsAppLink)
		}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// runCommand dispatches a slash command. It returns true when the REPL
// should exit.
func (r *REPL) runCommand(text string) (bool, error) {
	cmd, arg := splitCommand(text)

	switch cmd {
	case "/aide", "/help":
		printHelp()
	case "/nouvelle", "/new":
		r.persist()
		r.session.Reset()
		fmt.Println("Nouvelle conversation.")
	case "/avis+":
		return false, r.feedback(model.FeedbackPositive)
	case "/avis-":
		return false, r.feedback(model.FeedbackNegative)
	case "/export":
		return false, r.export(arg)
	case "/conversations", "/sessions":
		return false, r.listSessions()
	case "/recherche":
		return false, r.searchSessions(arg)
	case "/dictee":
		return false, r.dictate()
	case "/quitter", "/quit", "/exit":
		return true, nil
	default:
		return false, fmt.Errorf("commande inconnue %q, tapez /aide", cmd)
	}
	return false, nil
}

func splitCommand(text string) (cmd, arg string) {
	parts := strings.SplitN(text, " ", 2)
	cmd = strings.ToLower(parts[0])
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return cmd, arg
}

func printHelp() {
	fmt.Println(`Commandes :
  /aide            Cette aide
  /nouvelle        Démarrer une nouvelle conversation
  /avis+  /avis-   Donner un avis sur la dernière réponse
  /export [md]     Exporter la conversation (HTML par défaut)
  /conversations   Lister les conversations enregistrées
  /recherche mot   Chercher dans les conversations
  /dictee          Poser la question à la voix
  /quitter         Sortir`)
}

// feedback marks the last complete reply and forwards the signal.
func (r *REPL) feedback(fb model.Feedback) error {
	var last *model.Message
	for i := len(r.session.Messages) - 1; i >= 0; i-- {
		m := r.session.Messages[i]
		if m.Role == model.RoleAssistant && m.Status == model.StatusComplete {
			last = m
			break
		}
	}
	if last == nil {
		return errors.New("aucune réponse à évaluer")
	}
	if !last.SetFeedback(fb) {
		return errors.New("avis non applicable à cette réponse")
	}
	if err := r.client.SendFeedback(r.session, last, fb); err != nil {
		fmt.Println("Avis enregistré localement.")
		return nil
	}
	fmt.Println("Merci pour votre avis !")
	return nil
}

func (r *REPL) export(format string) error {
	if len(r.session.Messages) == 0 {
		return errors.New("rien à exporter")
	}
	opts := export.DefaultOptions()
	opts.Theme = r.cfg.UI.Theme

	var exporter export.Exporter
	switch format {
	case "", "html":
		exporter = export.NewHTMLExporter(opts)
	case "md", "markdown":
		exporter = export.NewMarkdownExporter(opts)
	default:
		return fmt.Errorf("format %q non supporté (html, md)", format)
	}

	path, err := export.ExportToFile(storage.Snapshot(r.session), exporter, opts)
	if err != nil {
		return err
	}
	fmt.Println("Conversation exportée vers " + path)
	return nil
}

func (r *REPL) listSessions() error {
	if r.store == nil {
		return errors.New("enregistrement des conversations désactivé")
	}
	metas, err := r.store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("Aucune conversation enregistrée.")
		return nil
	}
	for _, meta := range metas {
		fmt.Printf("  %s  %-50s (%d messages)\n",
			meta.UpdatedAt.Format("02/01 15:04"), meta.Summary, meta.MessageCount)
	}
	return nil
}

func (r *REPL) searchSessions(query string) error {
	if r.store == nil {
		return errors.New("enregistrement des conversations désactivé")
	}
	if query == "" {
		return errors.New("usage : /recherche mot")
	}
	metas, err := r.store.Search(query)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("Aucun résultat.")
		return nil
	}
	for _, meta := range metas {
		fmt.Printf("  %s  %s\n", meta.UpdatedAt.Format("02/01 15:04"), meta.Summary)
	}
	return nil
}

// dictate records one utterance and sends it as a question.
func (r *REPL) dictate() error {
	if r.voice == nil || !r.voice.Available() {
		return errors.New("dictée non disponible sur ce poste")
	}

	fmt.Println("Parlez maintenant...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := r.voice.Recognize(ctx)
	if err != nil {
		return fmt.Errorf("dictée : %w", err)
	}
	// Same composed form the voice adapter guarantees; recognizers on
	// macOS hand back decomposed accents.
	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		fmt.Println("Rien entendu.")
		return nil
	}

	fmt.Printf("Vous avez dit : %s\n", text)
	r.ask(text)
	return nil
}

// persist saves the transcript, best effort.
func (r *REPL) persist() {
	if r.store == nil || len(r.session.Messages) == 0 {
		return
	}
	if err := r.store.SaveSession(r.session); err != nil && r.logger != nil {
		r.logger.Printf("transcript save failed: %v", err)
	}
}
