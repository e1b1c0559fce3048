package identity

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/loopworks/dealbot/internal/board"
)

type fakePlatform struct {
	users         map[string]User
	infoCalls     int
	listCalls     int
	infoErr       error
	directoryList []User
}

func (f *fakePlatform) UserInfo(_ context.Context, userID string) (User, error) {
	f.infoCalls++
	if f.infoErr != nil {
		return User{}, f.infoErr
	}
	user, ok := f.users[userID]
	if !ok {
		return User{}, errors.New("user_not_found")
	}
	return user, nil
}

func (f *fakePlatform) ListUsers(context.Context) ([]User, error) {
	f.listCalls++
	return f.directoryList, nil
}

type fakeDirectory struct {
	people []board.Person
	err    error
}

func (f *fakeDirectory) ListPeople(context.Context) ([]board.Person, error) {
	return f.people, f.err
}

func writeRoster(t *testing.T, content string) *Roster {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return NewRoster(path, slog.Default())
}

func TestExplicitTagResolvesThroughEmail(t *testing.T) {
	platform := &fakePlatform{users: map[string]User{
		"U100": {ID: "U100", Name: "dana", RealName: "Dana Reyes", Email: "dana@fund.example"},
	}}
	directory := &fakeDirectory{people: []board.Person{
		{ID: "7", Name: "Dana Reyes", Email: "dana@fund.example"},
		{ID: "8", Name: "Dana Moore", Email: "dmoore@fund.example"},
	}}
	resolver := NewResolver(platform, directory, writeRoster(t, `{}`), slog.Default())

	result := resolver.Resolve(context.Background(), Ref{Tag: "U100"})
	if result.PersonID != "7" {
		t.Fatalf("expected email match to person 7, got %+v", result)
	}
	if result.PlatformID != "U100" || result.Email != "dana@fund.example" {
		t.Fatalf("expected full resolution, got %+v", result)
	}
}

func TestRosterShortCircuitsDirectoryScan(t *testing.T) {
	platform := &fakePlatform{users: map[string]User{
		"U200": {ID: "U200", Name: "wyatt", RealName: "Wyatt Heavy", Email: "wyatt@fund.example"},
	}}
	directory := &fakeDirectory{people: []board.Person{{ID: "9", Name: "Wyatt Heavy", Email: "wyatt@fund.example"}}}
	resolver := NewResolver(platform, directory, writeRoster(t, `{"Wyatt":"U200"}`), slog.Default())

	result := resolver.Resolve(context.Background(), Ref{Name: "wyatt"})
	if result.PersonID != "9" || result.PlatformID != "U200" {
		t.Fatalf("expected roster-backed resolution, got %+v", result)
	}
	if platform.listCalls != 0 {
		t.Fatalf("roster hit must avoid the directory scan, got %d list calls", platform.listCalls)
	}
}

func TestProfileLookupsAreCached(t *testing.T) {
	platform := &fakePlatform{users: map[string]User{
		"U300": {ID: "U300", Name: "ada", RealName: "Ada Chen", Email: "ada@fund.example"},
	}}
	directory := &fakeDirectory{people: []board.Person{{ID: "3", Name: "Ada Chen", Email: "ada@fund.example"}}}
	resolver := NewResolver(platform, directory, writeRoster(t, `{}`), slog.Default())

	resolver.Resolve(context.Background(), Ref{Tag: "U300"})
	resolver.Resolve(context.Background(), Ref{Tag: "U300"})
	if platform.infoCalls != 1 {
		t.Fatalf("expected cached profile reuse, got %d info calls", platform.infoCalls)
	}
}

func TestFailedLookupsAreCachedToo(t *testing.T) {
	platform := &fakePlatform{infoErr: errors.New("user_not_found")}
	directory := &fakeDirectory{}
	resolver := NewResolver(platform, directory, writeRoster(t, `{}`), slog.Default())

	resolver.Resolve(context.Background(), Ref{Tag: "U404"})
	resolver.Resolve(context.Background(), Ref{Tag: "U404"})
	if platform.infoCalls != 1 {
		t.Fatalf("expected failed lookup to be cached, got %d info calls", platform.infoCalls)
	}
}

func TestAmbiguousFirstNameIsNoMatch(t *testing.T) {
	platform := &fakePlatform{}
	directory := &fakeDirectory{people: []board.Person{
		{ID: "1", Name: "Dana Reyes", Email: "dr@fund.example"},
		{ID: "2", Name: "Dana Moore", Email: "dm@fund.example"},
	}}
	resolver := NewResolver(platform, directory, writeRoster(t, `{}`), slog.Default())

	result := resolver.Resolve(context.Background(), Ref{Name: "dana"})
	if result.PersonID != "" {
		t.Fatalf("ambiguous first name must not assign, got %+v", result)
	}
	if result.DisplayName != "dana" {
		t.Fatalf("expected partial resolution to keep the typed name, got %+v", result)
	}
}

func TestDirectBoardNameLookupWithoutPlatformProfile(t *testing.T) {
	platform := &fakePlatform{}
	directory := &fakeDirectory{people: []board.Person{{ID: "5", Name: "Harlan Grove", Email: "hg@fund.example"}}}
	resolver := NewResolver(platform, directory, writeRoster(t, `{}`), slog.Default())

	result := resolver.Resolve(context.Background(), Ref{Name: "Harlan Grove"})
	if result.PersonID != "5" {
		t.Fatalf("expected direct board name match, got %+v", result)
	}
	if result.PlatformID != "" {
		t.Fatalf("no platform profile should be reported, got %+v", result)
	}
}

func TestDirectoryScanMatchesFirstNameOnly(t *testing.T) {
	platform := &fakePlatform{directoryList: []User{
		{ID: "U500", Name: "jmoore", RealName: "Jalin Moore", Email: "jalin@fund.example"},
	}}
	directory := &fakeDirectory{people: []board.Person{{ID: "6", Name: "Jalin Moore", Email: "jalin@fund.example"}}}
	resolver := NewResolver(platform, directory, writeRoster(t, `{}`), slog.Default())

	result := resolver.Resolve(context.Background(), Ref{Name: "jalin"})
	if result.PlatformID != "U500" || result.PersonID != "6" {
		t.Fatalf("expected first-name directory match, got %+v", result)
	}
}
