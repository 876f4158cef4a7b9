package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/p-n-ai/learning-tracker/internal/app"
	"github.com/p-n-ai/learning-tracker/internal/client"
	"github.com/p-n-ai/learning-tracker/internal/export"
	"github.com/p-n-ai/learning-tracker/internal/platform/config"
	"github.com/p-n-ai/learning-tracker/internal/toolapi"
)

// caller is implemented by the local dispatcher and the remote client.
type caller interface {
	Call(ctx context.Context, name string, args json.RawMessage) (toolapi.Response, error)
}

// session runs commands against the local store or a remote server.
type session struct {
	caller caller
	local  *app.App
	remote *client.Client
}

func openSession(ctx context.Context, opts *rootOptions) (*session, error) {
	if opts.remoteURL != "" {
		c := client.New(opts.remoteURL, 30*time.Second, 2)
		return &session{caller: c, remote: c}, nil
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &session{caller: a.Dispatcher, local: a}, nil
}

func (s *session) Close() {
	if s.local != nil {
		s.local.Close()
	}
}

// call runs a tool and turns an unsuccessful response into an error.
func (s *session) call(ctx context.Context, name string, args any) (toolapi.Response, error) {
	var raw json.RawMessage
	if args != nil {
		var err error
		if raw, err = json.Marshal(args); err != nil {
			return nil, fmt.Errorf("encoding arguments: %w", err)
		}
	}
	resp, err := s.caller.Call(ctx, name, raw)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return resp, errors.New(resp.Error())
	}
	return resp, nil
}

func (s *session) workbook(ctx context.Context) ([]byte, error) {
	if s.remote != nil {
		return s.remote.Download(ctx, "/export/progress.xlsx")
	}
	detail, err := s.local.Tracker.Tutorial(ctx)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, errors.New(toolapi.NoTutorialMessage)
	}
	f, err := export.Workbook(detail)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *session) book(ctx context.Context) ([]byte, error) {
	if s.remote != nil {
		return s.remote.Download(ctx, "/export/book.md")
	}
	detail, err := s.local.Tracker.Tutorial(ctx)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, errors.New(toolapi.NoTutorialMessage)
	}
	return export.Book(detail), nil
}

// decode reads a response into a typed view.
func decode(resp toolapi.Response, v any) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
