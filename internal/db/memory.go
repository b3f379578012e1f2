package db

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Heidric/queueing/internal/customerrors"
	"github.com/Heidric/queueing/internal/logger"
	"github.com/Heidric/queueing/internal/model"
)

type commandType int

const (
	cmdSave commandType = iota
	cmdGet
	cmdList
	cmdFlush
)

type command struct {
	action     commandType
	evaluation *model.Evaluation
	id         int64
	limit      int
	respond    chan<- response
}

type response struct {
	evaluation *model.Evaluation
	list       []model.Evaluation
	err        error
}

// MemoryStore keeps history in a single goroutine fed by a command channel.
// With a file path it restores the file on start and rewrites it every
// interval (on every save when interval is <= 0) and on Close.
type MemoryStore struct {
	commands chan command
	path     string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
}

func NewMemoryStore(path string, interval time.Duration) (*MemoryStore, error) {
	records, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}

	if interval < 0 {
		interval = 0
	}

	s := &MemoryStore{
		commands: make(chan command),
		path:     path,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go s.run(records)

	if path != "" && interval > 0 {
		go s.flushLoop()
	}

	return s, nil
}

func (s *MemoryStore) run(records []model.Evaluation) {
	defer close(s.done)

	var nextID int64 = 1
	for _, r := range records {
		if r.ID >= nextID {
			nextID = r.ID + 1
		}
	}

	for cmd := range s.commands {
		switch cmd.action {
		case cmdSave:
			e := cmd.evaluation
			e.ID = nextID
			nextID++
			if e.CreatedAt.IsZero() {
				e.CreatedAt = s.now().UTC()
			}
			records = append(records, *e)
			var err error
			if s.path != "" && s.interval == 0 {
				err = writeSnapshot(s.path, records)
			}
			cmd.respond <- response{err: err}
		case cmdGet:
			var found *model.Evaluation
			for i := range records {
				if records[i].ID == cmd.id {
					e := records[i]
					found = &e
					break
				}
			}
			if found == nil {
				cmd.respond <- response{err: customerrors.ErrKeyNotFound}
				continue
			}
			cmd.respond <- response{evaluation: found}
		case cmdList:
			n := len(records)
			if cmd.limit > 0 && cmd.limit < n {
				n = cmd.limit
			}
			list := make([]model.Evaluation, 0, n)
			for i := len(records) - 1; i >= 0 && len(list) < n; i-- {
				list = append(list, records[i])
			}
			cmd.respond <- response{list: list}
		case cmdFlush:
			cmd.respond <- response{err: writeSnapshot(s.path, records)}
		}
	}
}

func (s *MemoryStore) flushLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.do(context.Background(), command{action: cmdFlush}); err != nil {
				logger.Log.Error().Err(err).Str("path", s.path).Msg("periodic history snapshot failed")
			}
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) do(ctx context.Context, cmd command) (response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return response{}, customerrors.ErrStorageClosed
	}

	respond := make(chan response, 1)
	cmd.respond = respond

	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	res := <-respond
	return res, res.err
}

func (s *MemoryStore) Save(ctx context.Context, e *model.Evaluation) error {
	if e == nil {
		return customerrors.ErrInvalidValue
	}
	_, err := s.do(ctx, command{action: cmdSave, evaluation: e})
	return err
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*model.Evaluation, error) {
	res, err := s.do(ctx, command{action: cmdGet, id: id})
	if err != nil {
		return nil, err
	}
	return res.evaluation, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]model.Evaluation, error) {
	res, err := s.do(ctx, command{action: cmdList, limit: limit})
	if err != nil {
		return nil, err
	}
	return res.list, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return customerrors.ErrStorageClosed
	}
	return ctx.Err()
}

// Close writes a final snapshot (when a path is set) and stops the store.
// Calls after the first return nil.
func (s *MemoryStore) Close() error {
	var err error
	if s.path != "" {
		_, err = s.do(context.Background(), command{action: cmdFlush})
		if errors.Is(err, customerrors.ErrStorageClosed) {
			return nil
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stop)
	close(s.commands)
	s.mu.Unlock()

	<-s.done
	return err
}

func readSnapshot(path string) ([]model.Evaluation, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read history snapshot")
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []model.Evaluation
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "decode history snapshot")
	}
	return records, nil
}

// writeSnapshot skips records whose metrics overflowed; JSON cannot carry
// NaN or Inf.
func writeSnapshot(path string, records []model.Evaluation) error {
	if path == "" {
		return nil
	}

	out := make([]model.Evaluation, 0, len(records))
	for _, r := range records {
		if r.Metrics != nil && !r.Metrics.Finite() {
			continue
		}
		out = append(out, r)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return errors.Wrap(err, "encode history snapshot")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write history snapshot")
	}
	return errors.Wrap(os.Rename(tmp, path), "replace history snapshot")
}
