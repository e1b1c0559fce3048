package identity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/loopworks/dealbot/internal/board"
)

const (
	cacheSize = 512
	cacheTTL  = time.Hour
)

// User is a chat-platform profile.
type User struct {
	ID       string
	Name     string
	RealName string
	Email    string
}

// Platform is the chat side of the identity mapping.
type Platform interface {
	UserInfo(ctx context.Context, userID string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// PersonDirectory is the board side of the identity mapping.
type PersonDirectory interface {
	ListPeople(ctx context.Context) ([]board.Person, error)
}

// Ref is a platform user reference: an explicit tag, or a typed name.
type Ref struct {
	Tag  string
	Name string
}

// Resolution carries whichever identifiers were actually resolved, so
// callers can report partial success. Resolve never fails outright.
type Resolution struct {
	PersonID    string
	PlatformID  string
	DisplayName string
	Email       string
}

// cached profile lookups store misses too, so repeated failures don't
// hammer the platform API.
type cachedProfile struct {
	user  User
	found bool
}

type Resolver struct {
	platform  Platform
	directory PersonDirectory
	roster    *Roster
	logger    *slog.Logger
	cache     *lru.LRU[string, cachedProfile]
}

func NewResolver(platform Platform, directory PersonDirectory, roster *Roster, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		platform:  platform,
		directory: directory,
		roster:    roster,
		logger:    logger,
		cache:     lru.NewLRU[string, cachedProfile](cacheSize, nil, cacheTTL),
	}
}

// Resolve maps a platform user reference to a board person. Resolution
// order short-circuits on first success: explicit tag lookup, roster,
// directory scan, then board-person matching by email, exact name, and
// unique first name.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) Resolution {
	profile, hasProfile := r.platformProfile(ctx, ref)

	result := Resolution{}
	if hasProfile {
		result.PlatformID = profile.ID
		result.DisplayName = firstNonEmpty(profile.RealName, profile.Name)
		result.Email = profile.Email
	} else if name := strings.TrimSpace(ref.Name); name != "" {
		result.DisplayName = name
	}

	people, err := r.directory.ListPeople(ctx)
	if err != nil {
		r.logger.Error("board person directory fetch failed", "error", err)
		return result
	}

	if hasProfile {
		if person, ok := matchPerson(people, profile.Email, firstNonEmpty(profile.RealName, profile.Name)); ok {
			result.PersonID = person.ID
			if result.Email == "" {
				result.Email = person.Email
			}
			return result
		}
	}
	// Last resort: a direct board-side name lookup, which covers people
	// who exist on the board but have no chat-platform account.
	if name := strings.TrimSpace(ref.Name); name != "" {
		if person, ok := matchPerson(people, "", name); ok {
			result.PersonID = person.ID
			if result.Email == "" {
				result.Email = person.Email
			}
			if result.DisplayName == "" {
				result.DisplayName = person.Name
			}
		}
	}
	return result
}

func (r *Resolver) platformProfile(ctx context.Context, ref Ref) (User, bool) {
	if tag := strings.TrimSpace(ref.Tag); tag != "" {
		return r.profileByID(ctx, tag)
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return User{}, false
	}
	if firstName := strings.Fields(strings.ToLower(name)); len(firstName) > 0 && r.roster != nil {
		if id, ok := r.roster.Lookup(firstName[0]); ok {
			return r.profileByID(ctx, id)
		}
	}
	return r.profileByName(ctx, name)
}

func (r *Resolver) profileByID(ctx context.Context, userID string) (User, bool) {
	if entry, ok := r.cache.Get(userID); ok {
		return entry.user, entry.found
	}
	user, err := r.platform.UserInfo(ctx, userID)
	if err != nil {
		r.logger.Warn("platform profile lookup failed", "user_id", userID, "error", err)
		r.cache.Add(userID, cachedProfile{})
		return User{}, false
	}
	r.cache.Add(userID, cachedProfile{user: user, found: true})
	return user, true
}

func (r *Resolver) profileByName(ctx context.Context, name string) (User, bool) {
	users, err := r.platform.ListUsers(ctx)
	if err != nil {
		r.logger.Warn("platform directory fetch failed", "error", err)
		return User{}, false
	}
	lowered := strings.ToLower(name)
	firstName := strings.Fields(lowered)
	for _, user := range users {
		if strings.ToLower(user.Name) == lowered || strings.ToLower(user.RealName) == lowered {
			r.cache.Add(user.ID, cachedProfile{user: user, found: true})
			return user, true
		}
	}
	if len(firstName) == 1 {
		for _, user := range users {
			realTokens := strings.Fields(strings.ToLower(user.RealName))
			if len(realTokens) > 0 && realTokens[0] == firstName[0] {
				r.cache.Add(user.ID, cachedProfile{user: user, found: true})
				return user, true
			}
		}
	}
	return User{}, false
}

// matchPerson applies the board-side strategy chain: exact email, exact
// full name, then unique first name. A first name shared by several
// people is treated as no match to avoid misassignment.
func matchPerson(people []board.Person, email, name string) (board.Person, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		for _, person := range people {
			if strings.ToLower(strings.TrimSpace(person.Email)) == email {
				return person, true
			}
		}
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return board.Person{}, false
	}
	for _, person := range people {
		if strings.ToLower(strings.TrimSpace(person.Name)) == name {
			return person, true
		}
	}
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return board.Person{}, false
	}
	var candidate board.Person
	matches := 0
	for _, person := range people {
		personTokens := strings.Fields(strings.ToLower(person.Name))
		if len(personTokens) > 0 && personTokens[0] == tokens[0] {
			candidate = person
			matches++
		}
	}
	if matches == 1 {
		return candidate, true
	}
	return board.Person{}, false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
