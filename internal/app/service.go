package app

import (
	"context"
	"fmt"
	"time"

	"github.com/smilefoto/klicka/internal/capture"
	"github.com/smilefoto/klicka/internal/finalize"
	"github.com/smilefoto/klicka/internal/remote"
	"github.com/smilefoto/klicka/internal/repo"
	"github.com/smilefoto/klicka/internal/syncer"
)

// Service wires the store, the remote API client and the workflow
// components together for the binaries.
type Service struct {
	Config    *Config
	Repos     *repo.Store
	Remote    remote.EventAPI
	Capture   *capture.Capturer
	Syncer    *syncer.Syncer
	Finalizer *finalize.Finalizer
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	kv, err := NewKVStore(config.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	headers := make([]remote.Header, 0, len(config.Remote.RequiredHeaders))
	for _, h := range config.Remote.RequiredHeaders {
		headers = append(headers, remote.Header{Name: h.Name, Value: h.Value})
	}
	api := remote.NewClient(config.Remote.BaseURL, config.Remote.Token, headers, config.RemoteTimeout())

	repos := repo.New(kv)

	return &Service{
		Config:    config,
		Repos:     repos,
		Remote:    api,
		Capture:   capture.New(repos),
		Syncer:    syncer.New(repos, api),
		Finalizer: finalize.New(repos, api),
	}, nil
}

// EventStatus is the offline-status line: what the device knows about an
// event and when it last talked to the server.
type EventStatus struct {
	EventID        string     `json:"eventId"`
	EventName      string     `json:"eventName"`
	IsFinished     bool       `json:"isFinished"`
	Students       int        `json:"students"`
	Sessions       int        `json:"sessions"`
	Unphotographed int        `json:"unphotographed"`
	LastSync       *time.Time `json:"lastSync,omitempty"`
	LastUpload     *time.Time `json:"lastUpload,omitempty"`
	LastScan       *time.Time `json:"lastScan,omitempty"`
}

func (s *Service) EventStatus(ctx context.Context, eventID string) (*EventStatus, error) {
	status := &EventStatus{EventID: eventID}

	event, err := s.Repos.Events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event != nil {
		status.EventName = event.Name
		status.IsFinished = event.IsFinished
	}

	students, err := s.Repos.Students.List(ctx, eventID)
	if err != nil {
		return nil, err
	}
	status.Students = len(students)

	sessions, err := s.Repos.Sessions.List(ctx, eventID)
	if err != nil {
		return nil, err
	}
	status.Sessions = len(sessions)

	rows, err := s.Finalizer.Rows(ctx, eventID)
	if err != nil {
		return nil, err
	}
	status.Unphotographed = len(rows)

	if status.LastSync, err = s.Repos.Stamps.LastSync(ctx, eventID); err != nil {
		return nil, err
	}
	if status.LastUpload, err = s.Repos.Stamps.LastUpload(ctx, eventID); err != nil {
		return nil, err
	}
	if status.LastScan, err = s.Repos.Stamps.LastScan(ctx, eventID); err != nil {
		return nil, err
	}

	return status, nil
}

func (s *Service) Close() error {
	if err := s.Repos.Close(); err != nil {
		return fmt.Errorf("errors while closing: store: %w", err)
	}
	return nil
}
