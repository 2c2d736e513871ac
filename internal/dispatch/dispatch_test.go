package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/MrWong99/friday/internal/dispatch"
	"github.com/MrWong99/friday/internal/intent"
	"github.com/MrWong99/friday/internal/resolve"
	"github.com/MrWong99/friday/internal/usage"
	"github.com/MrWong99/friday/pkg/provider/sysops"
	"github.com/MrWong99/friday/pkg/provider/sysops/mock"
)

// stubResolver resolves from fixed tables.
type stubResolver struct {
	apps, folders map[string]string
	files         map[string]resolve.Entity
	fileExts      [][]string
}

func (s *stubResolver) Resolve(_ context.Context, text string, kind resolve.Kind) (resolve.Entity, error) {
	table := s.apps
	if kind == resolve.KindFolder {
		table = s.folders
	}
	if p, ok := table[text]; ok {
		return resolve.Entity{Kind: kind, Name: text, Path: p}, nil
	}
	return resolve.Entity{}, fmt.Errorf("%w: %s %q", resolve.ErrEntityNotFound, kind, text)
}

func (s *stubResolver) ResolveFile(_ context.Context, name string, exts []string) (resolve.Entity, error) {
	s.fileExts = append(s.fileExts, exts)
	if e, ok := s.files[name]; ok {
		return e, nil
	}
	return resolve.Entity{}, fmt.Errorf("%w: file %q", resolve.ErrEntityNotFound, name)
}

func newStub() *stubResolver {
	return &stubResolver{
		apps:    map[string]string{"chrome": "/usr/share/applications/google-chrome.desktop"},
		folders: map[string]string{"downloads": "/home/u/Downloads"},
		files: map[string]resolve.Entity{
			"budget": {Kind: resolve.KindFile, Path: "/home/u/Desktop/budget.xlsx", Location: "Desktop"},
			"notes":  {Kind: resolve.KindFile, Path: "/home/u/notes.pdf"},
		},
	}
}

func in(action intent.Action, slots map[string]string, numbers map[string]int) intent.Intent {
	return intent.Intent{Action: action, Slots: slots, Numbers: numbers}
}

func TestDispatch_Replies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		intent intent.Intent
		want   string
		method string
	}{
		{"set volume", in(intent.ActionSetVolume, nil, map[string]int{intent.NumLevel: 40}), "Volume set to 40 percent", "SetVolume"},
		{"volume up", in(intent.ActionAdjustVolume, nil, map[string]int{intent.NumDelta: 10}), "Volume increased to 60 percent", "AdjustVolumeRelative"},
		{"volume down", in(intent.ActionAdjustVolume, nil, map[string]int{intent.NumDelta: -20}), "Volume decreased to 30 percent", "AdjustVolumeRelative"},
		{"mute", in(intent.ActionMute, nil, nil), "Volume muted", "SetVolume"},
		{"get volume", in(intent.ActionGetVolume, nil, nil), "Volume is at 50 percent", "GetVolume"},
		{"set brightness", in(intent.ActionSetBrightness, nil, map[string]int{intent.NumLevel: 70}), "Brightness set to 70 percent", "SetBrightness"},
		{"dimmer", in(intent.ActionAdjustBrightness, nil, map[string]int{intent.NumDelta: -10}), "Brightness set to 70 percent", "AdjustBrightnessRelative"},
		{"screenshot", in(intent.ActionScreenshot, nil, nil), "Screenshot saved", "TakeScreenshot"},
		{"shutdown now", in(intent.ActionShutdown, nil, map[string]int{intent.NumDelay: 0}), "Shutting down now", "Shutdown"},
		{"shutdown later", in(intent.ActionShutdown, nil, map[string]int{intent.NumDelay: 60}), "Shutting down in 60 seconds", "Shutdown"},
		{"restart", in(intent.ActionRestart, nil, nil), "Restarting now", "Restart"},
		{"sleep", in(intent.ActionSleep, nil, nil), "Going to sleep", "Sleep"},
		{"system info", in(intent.ActionSystemInfo, nil, nil), "Box is running Linux.", "SystemInfo"},
		{"web search", in(intent.ActionWebSearch, map[string]string{intent.SlotQuery: "golang"}, nil), "Searching the web for golang", "WebSearch"},
		{"open app", in(intent.ActionOpenApp, map[string]string{intent.SlotApp: "chrome"}, nil), "Opening chrome", "OpenResource"},
		{"open folder", in(intent.ActionOpenFolder, map[string]string{intent.SlotFolder: "downloads"}, nil), "Opening downloads folder", "OpenResource"},
		{"open file", in(intent.ActionOpenFile, map[string]string{intent.SlotName: "budget", intent.SlotType: "excel"}, nil), "Opening budget, an Excel spreadsheet from your Desktop", "OpenResource"},
		{"open file no location", in(intent.ActionOpenFile, map[string]string{intent.SlotName: "notes"}, nil), "Opening notes, a PDF", "OpenResource"},
		{"farewell", in(intent.ActionFarewell, nil, nil), "Goodbye!", ""},
		{"chat", in(intent.ActionChat, map[string]string{intent.SlotResponse: "How ya doing?"}, nil), "How ya doing?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ops := &mock.Operations{Volume: 50, Brightness: 80, Info: sysops.Info{Hostname: "box", OS: "Linux"}}
			d := dispatch.New(ops, newStub())

			r := d.Dispatch(context.Background(), tt.intent)
			if r.Text != tt.want {
				t.Errorf("Text = %q, want %q", r.Text, tt.want)
			}
			if !r.OK || r.Err != nil {
				t.Errorf("OK = %v, Err = %v", r.OK, r.Err)
			}
			if tt.method == "" {
				if len(ops.Calls) != 0 {
					t.Errorf("unexpected calls %v", ops.Methods())
				}
				return
			}
			if got := ops.Methods(); len(got) != 1 || got[0] != tt.method {
				t.Errorf("calls = %v, want exactly [%s]", got, tt.method)
			}
		})
	}
}

func TestDispatch_OperationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		intent intent.Intent
		fail   string
		want   string
	}{
		{in(intent.ActionSetVolume, nil, map[string]int{intent.NumLevel: 40}), "SetVolume", "Sorry, I couldn't change the volume"},
		{in(intent.ActionGetVolume, nil, nil), "GetVolume", "Sorry, I couldn't read the volume"},
		{in(intent.ActionSetBrightness, nil, map[string]int{intent.NumLevel: 1}), "SetBrightness", "Sorry, I couldn't change the brightness"},
		{in(intent.ActionScreenshot, nil, nil), "TakeScreenshot", "Sorry, I couldn't take a screenshot"},
		{in(intent.ActionOpenApp, map[string]string{intent.SlotApp: "chrome"}, nil), "OpenResource", "Sorry, I couldn't open chrome"},
	}
	for _, tt := range tests {
		t.Run(tt.fail, func(t *testing.T) {
			t.Parallel()
			ops := &mock.Operations{}
			ops.Fail(tt.fail)
			r := dispatch.New(ops, newStub()).Dispatch(context.Background(), tt.intent)
			if r.Text != tt.want {
				t.Errorf("Text = %q, want %q", r.Text, tt.want)
			}
			if r.OK || !errors.Is(r.Err, dispatch.ErrOperationFailed) {
				t.Errorf("OK = %v, Err = %v, want ErrOperationFailed", r.OK, r.Err)
			}
		})
	}
}

func TestDispatch_NotFound(t *testing.T) {
	t.Parallel()
	ops := &mock.Operations{}
	d := dispatch.New(ops, newStub())

	tests := []struct {
		intent intent.Intent
		want   string
	}{
		{in(intent.ActionOpenFolder, map[string]string{intent.SlotFolder: "qzx"}, nil), "Sorry, I couldn't find qzx folder"},
		{in(intent.ActionOpenApp, map[string]string{intent.SlotApp: "qzx"}, nil), "Sorry, I couldn't find qzx"},
		{in(intent.ActionOpenFile, map[string]string{intent.SlotName: "taxes"}, nil), "Sorry, I couldn't find taxes file"},
	}
	for _, tt := range tests {
		r := d.Dispatch(context.Background(), tt.intent)
		if r.Text != tt.want {
			t.Errorf("Text = %q, want %q", r.Text, tt.want)
		}
		if !errors.Is(r.Err, resolve.ErrEntityNotFound) {
			t.Errorf("Err = %v, want ErrEntityNotFound", r.Err)
		}
	}
	if ops.CallCount("OpenResource") != 0 {
		t.Error("OpenResource called for unresolved entity")
	}
}

func TestDispatch_OpenFilePassesExtensions(t *testing.T) {
	t.Parallel()
	stub := newStub()
	d := dispatch.New(&mock.Operations{}, stub)
	d.Dispatch(context.Background(), in(intent.ActionOpenFile, map[string]string{intent.SlotName: "budget", intent.SlotType: "word"}, nil))
	if len(stub.fileExts) != 1 || !reflect.DeepEqual(stub.fileExts[0], []string{".doc", ".docx"}) {
		t.Errorf("exts = %v", stub.fileExts)
	}

	r := d.Dispatch(context.Background(), in(intent.ActionOpenFile, map[string]string{intent.SlotName: ""}, nil))
	if r.Text != "Which file should I open?" || r.OK {
		t.Errorf("empty name reply = %+v", r)
	}
}

func TestDispatch_OpenAndSearch(t *testing.T) {
	t.Parallel()

	ops := &mock.Operations{}
	d := dispatch.New(ops, newStub())
	r := d.Dispatch(context.Background(), in(intent.ActionOpenAndSearch, map[string]string{intent.SlotApp: "chrome", intent.SlotQuery: "cats"}, nil))
	if r.Text != "Opening chrome and searching for cats" || !r.OK {
		t.Errorf("reply = %+v", r)
	}
	if got := ops.Methods(); !reflect.DeepEqual(got, []string{"OpenResource", "WebSearch"}) {
		t.Errorf("calls = %v", got)
	}

	// A failed open short-circuits the search.
	failing := &mock.Operations{}
	failing.Fail("OpenResource")
	r = dispatch.New(failing, newStub()).Dispatch(context.Background(), in(intent.ActionOpenAndSearch, map[string]string{intent.SlotApp: "chrome", intent.SlotQuery: "cats"}, nil))
	if r.OK || failing.CallCount("WebSearch") != 0 {
		t.Errorf("reply = %+v, searches = %d", r, failing.CallCount("WebSearch"))
	}
}

func TestDispatch_Unsupported(t *testing.T) {
	t.Parallel()
	r := dispatch.New(&mock.Operations{}, newStub()).Dispatch(context.Background(), in("dance", nil, nil))
	if !errors.Is(r.Err, dispatch.ErrUnsupported) || r.OK {
		t.Errorf("reply = %+v", r)
	}
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) Record(context.Context, usage.Event) error {
	f.calls++
	return errors.New("db locked")
}

func TestDispatch_RecordsUsage(t *testing.T) {
	t.Parallel()
	store := usage.NewMemoryStore()
	now := time.Date(2026, 4, 1, 9, 30, 0, 0, time.Local)
	d := dispatch.New(&mock.Operations{}, newStub(), dispatch.WithRecorder(store), dispatch.WithClock(func() time.Time { return now }))

	d.Dispatch(context.Background(), in(intent.ActionOpenApp, map[string]string{intent.SlotApp: "chrome"}, nil))
	d.Dispatch(context.Background(), in(intent.ActionMute, nil, nil))

	snap, _ := store.Snapshot(context.Background())
	if snap.CommandFrequency["open_app"] != 1 || snap.CommandFrequency["mute"] != 1 {
		t.Errorf("CommandFrequency = %v", snap.CommandFrequency)
	}
	if u := snap.AppUsage["chrome"]; u.Count != 1 || u.Hours[0] != 9 {
		t.Errorf("chrome usage = %+v", u)
	}

	// Recording failures never change the reply.
	rec := &failingRecorder{}
	r := dispatch.New(&mock.Operations{}, newStub(), dispatch.WithRecorder(rec)).
		Dispatch(context.Background(), in(intent.ActionMute, nil, nil))
	if r.Text != "Volume muted" || !r.OK || rec.calls != 1 {
		t.Errorf("reply = %+v, calls = %d", r, rec.calls)
	}
}
