package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bnema/gemini-live-cli/internal/application"
	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/logging"
	"github.com/spf13/cobra"
)

const connectHelp = `Type a message and press enter to talk to Gemini.
Commands: /status shows the session window, /summary saves a summary now, /quit ends the session.`

func newConnectCmd(app *app) *cobra.Command {
	var resumeID string
	var resumeLast bool
	var model string
	var voice string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Open a live session and keep it going across reconnects",
		Long:  "connect opens a Gemini Live session, records every turn, and reconnects with a restored context when the server ends the session at its time limit.\n\n" + connectHelp,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			setup, err := liveSetup(app, model, voice)
			if err != nil {
				return err
			}

			svc, err := app.service(ctx)
			if err != nil {
				return err
			}
			resume, err := svc.ResolveResume(ctx, application.ResumeCommand{
				SessionID: domain.SessionID(resumeID),
				Last:      resumeLast,
			})
			if err != nil {
				return err
			}

			return runConnect(ctx, cmd, app, svc, setup, resume)
		},
	}

	cmd.Flags().StringVar(&resumeID, "resume", "", "Continue a stored session by ID")
	cmd.Flags().BoolVar(&resumeLast, "resume-last", false, "Continue the most recent session started here")
	cmd.Flags().StringVar(&model, "model", "", "Live model (defaults to live.model)")
	cmd.Flags().StringVar(&voice, "voice", "", "Prebuilt voice (defaults to live.voice)")

	return cmd
}

func liveSetup(app *app, model string, voice string) (domain.LiveSetup, error) {
	setup := domain.LiveSetup{
		Model:             app.cfg.Live.Model,
		Voice:             app.cfg.Live.Voice,
		Modalities:        app.cfg.Live.LiveModalities(),
		SystemInstruction: app.cfg.Live.SystemInstruction,
		Transcription:     true,
	}
	if model = strings.TrimSpace(model); model != "" {
		setup.Model = model
	}
	if voice = strings.TrimSpace(voice); voice != "" {
		canonical, ok := domain.ValidVoice(voice)
		if !ok {
			return domain.LiveSetup{}, fmt.Errorf("%w: unknown voice %q", domain.ErrConfiguration, voice)
		}
		setup.Voice = canonical
	}
	return setup, nil
}

func runConnect(ctx context.Context, cmd *cobra.Command, app *app, svc *application.Service, setup domain.LiveSetup, resume domain.SessionID) (err error) {
	store, err := app.sessionStore(ctx)
	if err != nil {
		return err
	}

	cfg := app.cfg
	memory, err := application.NewMemoryManager(store, app.summarizer(),
		application.WithSummaryThreshold(cfg.Memory.SummaryThreshold),
		application.WithSummaryInterval(cfg.Memory.SummaryInterval),
		application.WithContextTranscripts(cfg.Memory.ContextTranscripts),
		application.WithRequestTimeout(cfg.Memory.RequestTimeout),
		application.WithMemoryLogger(app.logger),
		application.WithMemoryMetrics(app.metrics),
	)
	if err != nil {
		return err
	}

	controller := application.NewController(app.dialer, app.credentials, memory, application.ControllerConfig{
		Setup:           setup,
		SessionLimit:    cfg.Live.SessionLimit,
		ReconnectDelay:  cfg.Live.ReconnectDelay,
		DialTimeout:     cfg.Live.DialTimeout,
		WarningLead:     cfg.Live.WarningLead,
		FlushLead:       cfg.Live.FlushLead,
		RequestTimeout:  cfg.Memory.RequestTimeout,
		ResumeSessionID: resume,
	},
		application.WithControllerLogger(app.logger),
		application.WithControllerMetrics(app.metrics),
	)

	stopMetrics := serveMetrics(app)

	out := cmd.OutOrStdout()
	status := cmd.ErrOrStderr()
	printer := newEventPrinter(out, status, cfg.Live.SessionLimit, func(session domain.Session) {
		recordErr := svc.RecordHistory(ctx, application.RecordHistoryCommand{Session: session, Backend: cfg.Store.Backend})
		if recordErr != nil {
			logging.WithSession(app.logger, session.ID).Warn("record local history failed", "error", recordErr)
		}
	})

	done := make(chan struct{})
	var printing sync.WaitGroup
	printing.Add(1)
	go func() {
		defer printing.Done()
		for {
			select {
			case event := <-controller.Events():
				printer.handle(event)
			case <-done:
				return
			}
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Memory.RequestTimeout)
		defer cancel()

		var errs []error
		if disconnectErr := controller.Disconnect(shutdownCtx, "bye"); disconnectErr != nil {
			errs = append(errs, disconnectErr)
		}
		if closeErr := controller.Close(); closeErr != nil {
			errs = append(errs, closeErr)
		}
		if closeErr := memory.Close(); closeErr != nil {
			errs = append(errs, closeErr)
		}
		if stopErr := stopMetrics(shutdownCtx); stopErr != nil {
			errs = append(errs, stopErr)
		}

		close(done)
		printing.Wait()
		drainEvents(controller.Events(), printer)

		err = errors.Join(append([]error{err}, errs...)...)
	}()

	connectErr := runWithSpinner(ctx, status, "Connecting to Gemini Live...", controller.Connect)
	if connectErr != nil {
		if errors.Is(connectErr, domain.ErrConfiguration) || errors.Is(connectErr, domain.ErrInvalidState) {
			return connectErr
		}
		fmt.Fprintln(status, "first connect failed, retrying in the background")
	}
	fmt.Fprintln(status, connectHelp)

	return readInput(ctx, cmd.InOrStdin(), status, controller, memory, printer)
}

func readInput(ctx context.Context, in io.Reader, status io.Writer, controller *application.Controller, memory *application.MemoryManager, printer *eventPrinter) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		switch strings.TrimSpace(line) {
		case "":
		case "/quit", "/exit":
			return nil
		case "/status":
			fmt.Fprintln(status, printer.statusLine())
		case "/summary":
			ran, err := memory.TriggerSummarization(ctx)
			fmt.Fprintln(status, summaryMessage(ran, memory.Summarizing(), err))
		default:
			if err := controller.SendText(ctx, line); err != nil {
				fmt.Fprintf(status, "not sent: %v\n", err)
			}
		}
	}
}

// summaryMessage describes a manual summary request. busy is only
// consulted when the request did not run.
func summaryMessage(ran, busy bool, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("summary failed: %v", err)
	case ran:
		return "summary saved"
	case busy:
		return "a summary is already running"
	default:
		return "nothing new to summarize"
	}
}

func drainEvents(events <-chan application.Event, printer *eventPrinter) {
	for {
		select {
		case event := <-events:
			printer.handle(event)
		default:
			return
		}
	}
}

// serveMetrics exposes /metrics while a session runs when metrics.addr is
// set. The returned func stops the server.
func serveMetrics(app *app) func(context.Context) error {
	addr := strings.TrimSpace(app.cfg.Metrics.Addr)
	if addr == "" {
		return func(context.Context) error { return nil }
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("metrics server stopped", slog.String("addr", addr), slog.Any("error", err))
		}
	}()
	app.logger.Info("serving metrics", "addr", addr)

	return server.Shutdown
}
