package announcement

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/hub"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeRepo struct {
	createErr error
	nextID    int
}

func (r *fakeRepo) CreateAnnouncement(_ context.Context, a Announcement) (Announcement, error) {
	if r.createErr != nil {
		return Announcement{}, r.createErr
	}
	r.nextID++
	a.ID = r.nextID
	return a, nil
}

func (r *fakeRepo) QueryBySubject(context.Context, int) ([]Announcement, error) {
	return nil, nil
}

type fakeTokens struct {
	tokens []string
	err    error
}

func (f *fakeTokens) ListTokens(context.Context) ([]string, error) {
	return f.tokens, f.err
}

type fakePush struct {
	mu    sync.Mutex
	calls [][]string
	last  core.PushNotification
}

func (p *fakePush) Send(_ context.Context, n core.PushNotification, tokens ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, tokens)
	p.last = n
}

type testClient struct {
	frames [][]byte
}

func (c *testClient) Send(data []byte) error {
	c.frames = append(c.frames, data)
	return nil
}

func (c *testClient) Close() error { return nil }

func newAnnouncement() NewAnnouncement {
	return NewAnnouncement{SubjectID: 1, TeacherID: 2, Content: "exam on friday"}
}

func Test_Service_Create(t *testing.T) {
	h := hub.NewHub(nopLogger{}, nil)
	client := &testClient{}
	h.Register(client)
	push := &fakePush{}
	svc := NewService(&fakeRepo{}, h, &fakeTokens{tokens: []string{"tok-1", "tok-2"}}, push, nopLogger{})

	a, err := svc.Create(context.Background(), newAnnouncement())
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if a.ID != 1 {
		t.Errorf("ID = %d; want 1", a.ID)
	}

	// exactly one broadcast of the stored record
	if len(client.frames) != 1 {
		t.Fatalf("frames = %d; want 1", len(client.frames))
	}
	var evt struct {
		Name string       `json:"event"`
		Data Announcement `json:"data"`
	}
	if err := json.Unmarshal(client.frames[0], &evt); err != nil {
		t.Fatalf("unmarshaling frame: %v", err)
	}
	if evt.Name != hub.EventAnnouncementNew {
		t.Errorf("event = %s; want %s", evt.Name, hub.EventAnnouncementNew)
	}
	if evt.Data.ID != a.ID {
		t.Errorf("data.id = %d; want %d", evt.Data.ID, a.ID)
	}

	// exactly one push, to all registered tokens
	if len(push.calls) != 1 {
		t.Fatalf("push calls = %d; want 1", len(push.calls))
	}
	if got := push.calls[0]; len(got) != 2 || got[0] != "tok-1" || got[1] != "tok-2" {
		t.Errorf("push tokens = %v; want [tok-1 tok-2]", got)
	}
	if push.last.Body != "exam on friday" {
		t.Errorf("push body = %q; want announcement content", push.last.Body)
	}
}

func Test_Service_Create_noPushServiceConfigured(t *testing.T) {
	h := hub.NewHub(nopLogger{}, nil)
	client := &testClient{}
	h.Register(client)
	svc := NewService(&fakeRepo{}, h, &fakeTokens{tokens: []string{"tok-1"}}, nil, nopLogger{})

	if _, err := svc.Create(context.Background(), newAnnouncement()); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	// broadcast still happens; push is silently skipped
	if len(client.frames) != 1 {
		t.Errorf("frames = %d; want 1", len(client.frames))
	}
}

func Test_Service_Create_tokenLookupFailureIsSwallowed(t *testing.T) {
	h := hub.NewHub(nopLogger{}, nil)
	push := &fakePush{}
	svc := NewService(&fakeRepo{}, h, &fakeTokens{err: errors.New("db down")}, push, nopLogger{})

	if _, err := svc.Create(context.Background(), newAnnouncement()); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if len(push.calls) != 0 {
		t.Errorf("push calls = %d; want 0", len(push.calls))
	}
}

func Test_Service_Create_noTokensNoPush(t *testing.T) {
	h := hub.NewHub(nopLogger{}, nil)
	push := &fakePush{}
	svc := NewService(&fakeRepo{}, h, &fakeTokens{}, push, nopLogger{})

	if _, err := svc.Create(context.Background(), newAnnouncement()); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if len(push.calls) != 0 {
		t.Errorf("push calls = %d; want 0", len(push.calls))
	}
}

func Test_Service_Create_persistFailure(t *testing.T) {
	h := hub.NewHub(nopLogger{}, nil)
	client := &testClient{}
	h.Register(client)
	push := &fakePush{}
	svc := NewService(&fakeRepo{createErr: errors.New("db down")}, h, &fakeTokens{tokens: []string{"tok-1"}}, push, nopLogger{})

	if _, err := svc.Create(context.Background(), newAnnouncement()); err == nil {
		t.Fatalf("Create() expected error")
	}
	if len(client.frames) != 0 {
		t.Errorf("frames = %d; want 0 after failed persist", len(client.frames))
	}
	if len(push.calls) != 0 {
		t.Errorf("push calls = %d; want 0 after failed persist", len(push.calls))
	}
}
