package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhister1020/story-voice-generator/internal/models"
)

type fakeAPI struct {
	mu            sync.Mutex
	voices        *VoicesResult
	voicesErr     error
	generate      *GenerateResponse
	generateErr   error
	generateCalls int
	listCalls     int

	// When set, GenerateVoice signals started and blocks until release is closed.
	started chan struct{}
	release chan struct{}
}

func (f *fakeAPI) ListVoices(ctx context.Context) (*VoicesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.voices, f.voicesErr
}

func (f *fakeAPI) GenerateVoice(ctx context.Context, text, voiceID string) (*GenerateResponse, error) {
	f.mu.Lock()
	f.generateCalls++
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-release
	}
	return f.generate, f.generateErr
}

// countingStore is an in-memory ResourceStore that records releases.
type countingStore struct {
	mu       sync.Mutex
	live     map[uuid.UUID]bool
	created  int
	released int
	failNext bool
}

func newCountingStore() *countingStore {
	return &countingStore{live: make(map[uuid.UUID]bool)}
}

func (s *countingStore) Create(data []byte) (*AudioResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return nil, errors.New("disk full")
	}
	s.created++
	res := &AudioResource{ID: uuid.New(), Size: len(data)}
	s.live[res.ID] = true
	return res, nil
}

func (s *countingStore) Release(res *AudioResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res == nil || !s.live[res.ID] {
		return nil
	}
	delete(s.live, res.ID)
	s.released++
	return nil
}

func audioResponse(body string) *GenerateResponse {
	return &GenerateResponse{StatusCode: 200, ContentType: "audio/mpeg", Body: []byte(body)}
}

func readyOrchestrator(api *fakeAPI, store ResourceStore) *Orchestrator {
	o := NewOrchestrator(api, store)
	o.SetText("Once upon a time")
	o.SelectVoice("v1")
	return o
}

func TestNewOrchestrator_InitialState(t *testing.T) {
	s := NewOrchestrator(&fakeAPI{}, newCountingStore()).State()

	assert.Empty(t, s.Voices)
	assert.Empty(t, s.SelectedVoiceID)
	assert.Nil(t, s.Audio)
	assert.True(t, s.IsLoadingVoices)
	assert.False(t, s.IsGenerating)
	assert.Empty(t, s.Error)
}

func TestOrchestrator_Mount(t *testing.T) {
	t.Run("populates voices", func(t *testing.T) {
		api := &fakeAPI{voices: &VoicesResult{
			StatusCode: 200,
			Success:    true,
			Voices:     []models.Voice{{VoiceID: "v1", Name: "Rachel", Category: "premade"}},
		}}
		o := NewOrchestrator(api, newCountingStore())

		o.Mount(context.Background())
		s := o.State()

		assert.Equal(t, []models.Voice{{VoiceID: "v1", Name: "Rachel", Description: "", Category: "premade"}}, s.Voices)
		assert.False(t, s.IsLoadingVoices)
		assert.Empty(t, s.Error)
	})

	t.Run("unsuccessful envelope", func(t *testing.T) {
		api := &fakeAPI{voices: &VoicesResult{StatusCode: 500, Error: "Failed to fetch voices"}}
		o := NewOrchestrator(api, newCountingStore())

		o.Mount(context.Background())
		s := o.State()

		assert.Equal(t, ErrMsgLoadVoices, s.Error)
		assert.False(t, s.IsLoadingVoices)
		assert.Empty(t, s.Voices)
	})

	t.Run("connection failure", func(t *testing.T) {
		o := NewOrchestrator(&fakeAPI{voicesErr: errors.New("dial tcp: refused")}, newCountingStore())

		o.Mount(context.Background())
		s := o.State()

		assert.Equal(t, ErrMsgConnect, s.Error)
		assert.False(t, s.IsLoadingVoices)
	})

	t.Run("fetches once", func(t *testing.T) {
		api := &fakeAPI{voicesErr: errors.New("down")}
		o := NewOrchestrator(api, newCountingStore())

		o.Mount(context.Background())
		o.Mount(context.Background())

		assert.Equal(t, 1, api.listCalls)
	})
}

func TestOrchestrator_GenerateGuards(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		voice string
	}{
		{"empty text", "", "v1"},
		{"whitespace text", "  \n\t", "v1"},
		{"no voice", "hello", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{generate: audioResponse("mp3")}
			o := NewOrchestrator(api, newCountingStore())
			o.SetText(tt.text)
			o.SelectVoice(tt.voice)

			o.Generate(context.Background())
			s := o.State()

			assert.Zero(t, api.generateCalls)
			assert.Empty(t, s.Error)
			assert.Nil(t, s.Audio)
			assert.False(t, s.IsGenerating)
		})
	}
}

func TestOrchestrator_GenerateSuccess(t *testing.T) {
	store := newCountingStore()
	o := readyOrchestrator(&fakeAPI{generate: audioResponse("mp3-bytes")}, store)

	o.Generate(context.Background())
	s := o.State()

	require.NotNil(t, s.Audio)
	assert.Equal(t, len("mp3-bytes"), s.Audio.Size)
	assert.Empty(t, s.Error)
	assert.False(t, s.IsGenerating)
}

func TestOrchestrator_ContentTypeWithParameters(t *testing.T) {
	api := &fakeAPI{generate: &GenerateResponse{StatusCode: 200, ContentType: "audio/mpeg; charset=binary", Body: []byte("x")}}
	o := readyOrchestrator(api, newCountingStore())

	o.Generate(context.Background())

	assert.NotNil(t, o.State().Audio)
}

func TestOrchestrator_ReleasesPreviousResources(t *testing.T) {
	store := newCountingStore()
	o := readyOrchestrator(&fakeAPI{generate: audioResponse("mp3")}, store)

	const n = 5
	for i := 0; i < n; i++ {
		o.Generate(context.Background())
	}

	assert.Equal(t, n, store.created)
	assert.Equal(t, n-1, store.released)
	assert.Len(t, store.live, 1)
	assert.NotNil(t, o.State().Audio)

	require.NoError(t, o.Close())
	assert.Equal(t, n, store.released)
	assert.Empty(t, store.live)

	require.NoError(t, o.Close())
	assert.Equal(t, n, store.released)
}

func TestOrchestrator_ErrorResponse(t *testing.T) {
	t.Run("rate limited envelope", func(t *testing.T) {
		api := &fakeAPI{generate: &GenerateResponse{
			StatusCode:  429,
			ContentType: "application/json",
			Body:        []byte(`{"success":false,"error":"rate limited"}`),
		}}
		o := readyOrchestrator(api, newCountingStore())

		o.Generate(context.Background())
		s := o.State()

		assert.Equal(t, "rate limited", s.Error)
		assert.Nil(t, s.Audio)
		assert.False(t, s.IsGenerating)
	})

	t.Run("fallback includes status", func(t *testing.T) {
		api := &fakeAPI{generate: &GenerateResponse{StatusCode: 502, ContentType: "text/html", Body: []byte("<html>bad gateway</html>")}}
		o := readyOrchestrator(api, newCountingStore())

		o.Generate(context.Background())

		assert.Equal(t, "Request failed with status 502", o.State().Error)
	})

	t.Run("previous audio released on failure", func(t *testing.T) {
		store := newCountingStore()
		api := &fakeAPI{generate: audioResponse("mp3")}
		o := readyOrchestrator(api, store)
		o.Generate(context.Background())
		require.NotNil(t, o.State().Audio)

		api.generate = &GenerateResponse{StatusCode: 401, Body: []byte(`{"success":false,"error":"Authentication failed with speech service"}`)}
		o.Generate(context.Background())
		s := o.State()

		assert.Nil(t, s.Audio)
		assert.Equal(t, "Authentication failed with speech service", s.Error)
		assert.Equal(t, 1, store.released)
	})
}

func TestOrchestrator_UnexpectedContentType(t *testing.T) {
	store := newCountingStore()
	api := &fakeAPI{generate: &GenerateResponse{StatusCode: 200, ContentType: "application/json", Body: []byte(`{"success":true}`)}}
	o := readyOrchestrator(api, store)

	o.Generate(context.Background())
	s := o.State()

	assert.Equal(t, ErrMsgUnexpectedFormat, s.Error)
	assert.Nil(t, s.Audio)
	assert.Zero(t, store.created)
	assert.False(t, s.IsGenerating)
}

func TestOrchestrator_NetworkError(t *testing.T) {
	o := readyOrchestrator(&fakeAPI{generateErr: errors.New("connection reset")}, newCountingStore())

	o.Generate(context.Background())
	s := o.State()

	assert.Equal(t, ErrMsgNetwork, s.Error)
	assert.False(t, s.IsGenerating)
}

func TestOrchestrator_ResourceCreateFailure(t *testing.T) {
	store := newCountingStore()
	store.failNext = true
	o := readyOrchestrator(&fakeAPI{generate: audioResponse("mp3")}, store)

	o.Generate(context.Background())
	s := o.State()

	assert.Equal(t, ErrMsgPrepareAudio, s.Error)
	assert.Nil(t, s.Audio)
	assert.False(t, s.IsGenerating)
}

func TestOrchestrator_SuccessClearsPreviousError(t *testing.T) {
	api := &fakeAPI{generateErr: errors.New("offline")}
	o := readyOrchestrator(api, newCountingStore())
	o.Generate(context.Background())
	require.Equal(t, ErrMsgNetwork, o.State().Error)

	api.generateErr = nil
	api.generate = audioResponse("mp3")
	o.Generate(context.Background())

	assert.Empty(t, o.State().Error)
	assert.NotNil(t, o.State().Audio)
}

func TestOrchestrator_InertWhileGenerating(t *testing.T) {
	api := &fakeAPI{
		generate: audioResponse("mp3"),
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	o := readyOrchestrator(api, newCountingStore())

	done := make(chan struct{})
	go func() {
		o.Generate(context.Background())
		close(done)
	}()
	<-api.started

	assert.True(t, o.State().IsGenerating)
	o.Generate(context.Background())

	close(api.release)
	<-done

	assert.Equal(t, 1, api.generateCalls)
	assert.False(t, o.State().IsGenerating)
	assert.NotNil(t, o.State().Audio)
}

func TestOrchestrator_CloseDuringGenerationDiscardsResponse(t *testing.T) {
	store := newCountingStore()
	api := &fakeAPI{
		generate: audioResponse("mp3"),
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	o := readyOrchestrator(api, store)

	done := make(chan struct{})
	go func() {
		o.Generate(context.Background())
		close(done)
	}()
	<-api.started

	require.NoError(t, o.Close())
	close(api.release)
	<-done

	s := o.State()
	assert.Nil(t, s.Audio)
	assert.False(t, s.IsGenerating)
	assert.Equal(t, 1, store.created)
	assert.Equal(t, 1, store.released)
	assert.Empty(t, store.live)

	o.Generate(context.Background())
	assert.Equal(t, 1, api.generateCalls)
}

func TestOrchestrator_StateIsACopy(t *testing.T) {
	api := &fakeAPI{voices: &VoicesResult{Success: true, StatusCode: 200, Voices: []models.Voice{{VoiceID: "v1", Name: "Rachel"}}}}
	o := NewOrchestrator(api, newCountingStore())
	o.Mount(context.Background())

	s := o.State()
	s.Voices[0].Name = "changed"

	assert.Equal(t, "Rachel", o.State().Voices[0].Name)
}
