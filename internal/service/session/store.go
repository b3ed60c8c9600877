package session

import (
	"errors"
	"sync"

	"github.com/t0m4t0ww/license-plate-recognition/internal/model"
)

var (
	// ErrNoInput is returned when an action needs an input that is not selected.
	ErrNoInput = errors.New("no input selected")
	// ErrBusy is returned while an on-demand request is outstanding.
	ErrBusy = errors.New("a request is already in progress")
	// ErrControlsDisabled is returned while a reset is in progress.
	ErrControlsDisabled = errors.New("controls are disabled while resetting")
)

// Ticket identifies the generation a submission was issued in. Responses are
// applied only while their ticket is still current.
type Ticket uint64

// Listener receives a snapshot after each mutation. Snapshots may arrive out
// of order across goroutines; Version orders them.
type Listener func(model.State)

// Store serializes every mutation of the session record.
type Store struct {
	mu         sync.Mutex
	state      model.State
	generation uint64
	listeners  []Listener
}

func NewStore() *Store {
	return &Store{state: model.InitialState()}
}

// Subscribe registers l for all future mutations.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Ticket returns the current generation.
func (s *Store) Ticket() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ticket(s.generation)
}

// Resetting reports whether a reset is in progress.
func (s *Store) Resetting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Resetting
}

// SelectImage switches to a still image. It returns the replaced state so the
// caller can release what it referenced.
func (s *Store) SelectImage(media model.Media) (model.State, error) {
	prev, _, err := s.update(func(st model.State) (model.State, error) {
		if st.Resetting {
			return st, ErrControlsDisabled
		}
		s.generation++
		return SelectImage(st, media), nil
	})
	return prev, err
}

// SelectVideo switches to a video file.
func (s *Store) SelectVideo(media model.Media) (model.State, error) {
	prev, _, err := s.update(func(st model.State) (model.State, error) {
		if st.Resetting {
			return st, ErrControlsDisabled
		}
		s.generation++
		return SelectVideo(st, media), nil
	})
	return prev, err
}

// SelectWebcam switches to the webcam relay.
func (s *Store) SelectWebcam() (model.State, error) {
	prev, _, err := s.update(func(st model.State) (model.State, error) {
		if st.Resetting {
			return st, ErrControlsDisabled
		}
		if st.Processing {
			return st, ErrBusy
		}
		s.generation++
		return SelectWebcam(st), nil
	})
	return prev, err
}

// BeginProcess checks the on-demand preconditions and marks the request
// outstanding. It returns the image to submit and the request's ticket.
func (s *Store) BeginProcess() (model.Media, Ticket, error) {
	var media model.Media
	var ticket Ticket
	_, _, err := s.update(func(st model.State) (model.State, error) {
		switch {
		case st.Resetting:
			return st, ErrControlsDisabled
		case st.InputKind != model.InputImage || st.Image == nil:
			return st, ErrNoInput
		case st.Processing:
			return st, ErrBusy
		}
		media = *st.Image
		ticket = Ticket(s.generation)
		return BeginProcess(st), nil
	})
	return media, ticket, err
}

// FinishProcess records the outcome of an on-demand request. A nil result
// means the request failed. It reports whether the outcome was applied.
func (s *Store) FinishProcess(t Ticket, r *model.Result) bool {
	_, _, err := s.update(func(st model.State) (model.State, error) {
		if uint64(t) != s.generation {
			return st, errStale
		}
		if r == nil {
			return FailProcess(st), nil
		}
		return ApplyProcessResult(st, *r), nil
	})
	return err == nil
}

// ApplyFrameResult records a sampled frame's result while the same video is
// still selected and no reset is pending.
func (s *Store) ApplyFrameResult(t Ticket, r model.Result) bool {
	_, _, err := s.update(func(st model.State) (model.State, error) {
		if uint64(t) != s.generation || st.Resetting || st.InputKind != model.InputVideoFile {
			return st, errStale
		}
		return ApplyFrameResult(st, r), nil
	})
	return err == nil
}

// BeginReset disables the controls. It reports false when a reset is already pending.
func (s *Store) BeginReset() bool {
	_, _, err := s.update(func(st model.State) (model.State, error) {
		if st.Resetting {
			return st, errStale
		}
		s.generation++
		return BeginReset(st), nil
	})
	return err == nil
}

// CompleteReset clears every field and returns the state it replaced.
func (s *Store) CompleteReset() (model.State, bool) {
	prev, _, err := s.update(func(st model.State) (model.State, error) {
		if !st.Resetting {
			return st, errStale
		}
		s.generation++
		return CompleteReset(st), nil
	})
	return prev, err == nil
}

var errStale = errors.New("stale")

func (s *Store) update(fn func(model.State) (model.State, error)) (model.State, model.State, error) {
	s.mu.Lock()
	prev := s.state
	next, err := fn(s.state)
	if err != nil {
		s.mu.Unlock()
		return prev, prev, err
	}
	next.Version = prev.Version + 1
	s.state = next
	snapshot := next.Clone()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
	return prev, snapshot, nil
}
