package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mikey/auto-dictionary/internal/adapters/compose"
	"github.com/mikey/auto-dictionary/internal/core"
	"github.com/mikey/auto-dictionary/internal/factory"
	"github.com/mikey/auto-dictionary/internal/utils"
)

// Request is one line of a session script
type Request struct {
	Op        string   `json:"op"`
	Window    string   `json:"window"`
	To        []string `json:"to,omitempty"`
	CC        []string `json:"cc,omitempty"`
	Languages []string `json:"languages,omitempty"`
}

// Response is one line of session output
type Response struct {
	Window    string   `json:"window,omitempty"`
	Event     string   `json:"event"`
	Label     string   `json:"label,omitempty"`
	Text      string   `json:"text,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Session drives one controller per compose window from scripted requests
type Session struct {
	deductions *factory.DeductionFactory
	windows    *factory.WindowFactory
	addresses  *utils.AddressProcessor
	logger     *zap.Logger

	outMu sync.Mutex
	out   *json.Encoder

	open map[string]*sessionWindow
}

type sessionWindow struct {
	window     *compose.Window
	controller *core.Controller
}

// NewSession creates a session writing JSON lines to out
func NewSession(
	deductions *factory.DeductionFactory,
	windows *factory.WindowFactory,
	addresses *utils.AddressProcessor,
	out io.Writer,
	logger *zap.Logger,
) *Session {
	return &Session{
		deductions: deductions,
		windows:    windows,
		addresses:  addresses,
		logger:     logger.Named("session"),
		out:        json.NewEncoder(out),
		open:       make(map[string]*sessionWindow),
	}
}

// Run handles requests line by line until r is exhausted. Bad requests are
// reported on the output and do not end the session.
func (s *Session) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.emit(Response{Event: "error", Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}
		if err := s.Handle(ctx, req); err != nil {
			s.emit(Response{Window: req.Window, Event: "error", Error: err.Error()})
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Handle applies one request
func (s *Session) Handle(ctx context.Context, req Request) error {
	if req.Window == "" {
		return errors.New("request without window")
	}

	switch req.Op {
	case "open":
		w, err := s.openWindow(req.Window)
		if err != nil {
			return err
		}
		if len(req.To) > 0 || len(req.CC) > 0 {
			w.window.SetRecipients(s.addresses.Recipients(req.To, req.CC))
		}
		if s.deductions.DeduceOnLoad() {
			return s.deduce(ctx, w)
		}
		return nil

	case "recipients":
		w, err := s.window(req.Window)
		if err != nil {
			return err
		}
		w.window.SetRecipients(s.addresses.Recipients(req.To, req.CC))
		return s.deduce(ctx, w)

	case "languages":
		w, err := s.window(req.Window)
		if err != nil {
			return err
		}
		w.window.ChooseLanguages(req.Languages)
		return w.controller.LanguageChanged(ctx)

	case "deduce":
		w, err := s.window(req.Window)
		if err != nil {
			return err
		}
		return s.deduce(ctx, w)

	case "close":
		w, err := s.window(req.Window)
		if err != nil {
			return err
		}
		delete(s.open, req.Window)
		return w.controller.Shutdown(ctx)

	default:
		return fmt.Errorf("unknown op %q", req.Op)
	}
}

// Close shuts down the windows left open
func (s *Session) Close(ctx context.Context) error {
	var errs error
	for name, w := range s.open {
		errs = multierr.Append(errs, w.controller.Shutdown(ctx))
		delete(s.open, name)
	}
	return errs
}

func (s *Session) openWindow(name string) (*sessionWindow, error) {
	if _, exists := s.open[name]; exists {
		return nil, fmt.Errorf("window %s already open", name)
	}

	window := s.windows.CreateWindow(name, compose.WithLabelHook(func(shown compose.LabelShown) {
		s.emit(Response{
			Window:    name,
			Event:     "label",
			Label:     string(shown.Label),
			Text:      shown.Text,
			Languages: shown.Languages,
		})
	}))
	controller := s.deductions.CreateController(window, name)

	controller.AddEventListener(core.EventDeductionCompleted, func(ctx context.Context, event core.Event) error {
		s.emit(Response{Window: name, Event: string(event.Type), Languages: event.Languages})
		return nil
	})
	controller.AddEventListener(core.EventDeductionFailed, func(ctx context.Context, event core.Event) error {
		s.emit(Response{Window: name, Event: string(event.Type)})
		return nil
	})
	controller.AddEventListener(core.EventShutdown, func(ctx context.Context, event core.Event) error {
		s.emit(Response{Window: name, Event: string(event.Type)})
		return nil
	})

	w := &sessionWindow{window: window, controller: controller}
	s.open[name] = w
	s.logger.Debug("Opened window", zap.String("window", name))
	return w, nil
}

func (s *Session) window(name string) (*sessionWindow, error) {
	w, ok := s.open[name]
	if !ok {
		return nil, fmt.Errorf("window %s is not open", name)
	}
	return w, nil
}

func (s *Session) deduce(ctx context.Context, w *sessionWindow) error {
	err := w.controller.DeduceLanguage(ctx)
	if errors.Is(err, core.ErrDeductionFailed) {
		// already reported through the deduction-failed event
		return nil
	}
	return err
}

func (s *Session) emit(resp Response) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if err := s.out.Encode(resp); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}
