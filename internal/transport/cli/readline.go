package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/internal/service/ui"
	"github.com/sandevgo/cuuri/pkg/log"
	"github.com/sandevgo/cuuri/pkg/srv"
)

const (
	cmdNew     = "/new"
	cmdSession = "/session"
	cmdExit    = "exit"
	cmdQuit    = "/quit"
)

type ReadLine struct {
	chat     core.Submitter
	provider core.ProviderConfig
	rl       *readline.Instance
	session  string
}

// NewReadLine opens an interactive session. An empty sessionID starts a
// fresh one.
func NewReadLine(chat core.Submitter, provider core.ProviderConfig, historyFile, sessionID string) (*ReadLine, error) {
	if err := os.MkdirAll(filepath.Dir(historyFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       cmdExit,
	})
	if err != nil {
		return nil, err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return &ReadLine{
		chat:     chat,
		provider: provider,
		rl:       rl,
		session:  sessionID,
	}, nil
}

func (r *ReadLine) Session() string {
	return r.session
}

// Start runs the prompt loop. Leaving the prompt returns srv.ErrShutdown so
// the process stops with it.
func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	out := r.rl.Stdout()

	fmt.Fprintln(out, ui.TitleStyle.Render(core.CuuriName+" "+core.CuuriVersion))
	fmt.Fprintln(out, ui.DescStyle.Render(fmt.Sprintf("session %s, model %s. /new starts over, exit quits.", r.session, r.provider.GetModel())))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return srv.ErrShutdown
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return srv.ErrShutdown
			}
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case cmdExit, cmdQuit:
			return srv.ErrShutdown
		case cmdNew:
			r.session = uuid.NewString()
			fmt.Fprintln(out, ui.DescStyle.Render("new session "+r.session))
			continue
		case cmdSession:
			fmt.Fprintln(out, r.session)
			continue
		}

		_, err = Ask(ctx, r.chat, core.SubmitRequest{
			SessionID:  r.session,
			Text:       line,
			Model:      r.provider.GetModel(),
			Credential: r.provider.GetAPIKey(),
		}, out)
		if err != nil {
			logger.Debug().Err(err).Msg("submit failed")
			fmt.Fprintln(out, DescribeError(err))
		}
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
