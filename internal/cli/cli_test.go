package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellcardmanager/spellcards/internal/color"
	"github.com/spellcardmanager/spellcards/internal/deckfile"
	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/session"
)

// syncBuffer is a bytes.Buffer safe for a command writing on another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	dir  string
	deck string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{dir: dir, deck: filepath.Join(dir, "wizard.json")}
}

// writeFixture stores a deck with three spells: Fireball (level 3, Fire,
// favourite), Cure Wounds (level 1, Healing) and Shield (level 1).
func (e *testEnv) writeFixture(t *testing.T) {
	t.Helper()
	deck := domain.NewDeck()
	fire := domain.NewTag("Fire", color.MustParseHex("#ff4500"))
	healing := domain.NewTag("Healing", color.MustParseHex("#2e8b57"))
	deck.AddTag(fire)
	deck.AddTag(healing)

	fireball := domain.NewCard("Fireball")
	fireball.SetDescription("A bright streak flashes to a point you choose.\n\n**8d6** fire damage.")
	fireball.SetAttributes(domain.NewAttributes(
		domain.Attribute{Key: "Level", Value: "3"},
		domain.Attribute{Key: "Range", Value: "150 feet"},
	))
	fireball.Tags().Add(fire)
	fireball.SetFavorite(true)

	cure := domain.NewCard("Cure Wounds")
	cure.SetDescription("A creature you touch regains hit points.")
	cure.SetAttributes(domain.NewAttributes(domain.Attribute{Key: "Level", Value: "1"}))
	cure.Tags().Add(healing)

	shield := domain.NewCard("Shield")
	shield.SetDescription("An invisible barrier of magical force appears.")
	shield.SetAttributes(domain.NewAttributes(domain.Attribute{Key: "level", Value: "1"}))

	deck.AddCard(fireball)
	deck.AddCard(cure)
	deck.AddCard(shield)

	f, err := os.Create(e.deck)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, deckfile.Write(f, deck, deckfile.FormatJSON, deckfile.WriteOptions{}))
}

func (e *testEnv) readDeck(t *testing.T, path string) *domain.Deck {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	deck, err := deckfile.Read(f)
	require.NoError(t, err)
	return deck
}

type result struct {
	out  string
	err  string
	code int
}

func (e *testEnv) runWithContext(ctx context.Context, stdin string, out *syncBuffer, args ...string) result {
	return e.runInput(ctx, strings.NewReader(stdin), out, args...)
}

func (e *testEnv) runInput(ctx context.Context, in io.Reader, out *syncBuffer, args ...string) result {
	var errBuf syncBuffer
	global := []string{
		"--data-path", filepath.Join(e.dir, "data"),
		"--env-file", filepath.Join(e.dir, "none.env"),
		"--no-color",
		"--log-level", "warn",
		"--deck", e.deck,
	}
	app := New(in, out, &errBuf, "1.2.3")
	code := app.Main(ctx, append(global, args...))
	return result{out: out.String(), err: errBuf.String(), code: code}
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	return e.runWithContext(context.Background(), stdin, &syncBuffer{}, args...)
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "", "list")
	require.Equal(t, 0, res.code, res.err)
	assert.Equal(t, strings.Join([]string{
		"Level 1",
		"  Cure Wounds  [Healing]",
		"  Shield",
		"",
		"Level 3",
		"* Fireball  [Fire]",
		"3 of 3 spells",
		"",
	}, "\n"), res.out)
}

func TestList_Filters(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
		summary  string
	}{
		{
			name:     "search names and descriptions",
			args:     []string{"--search", "force"},
			contains: []string{"Shield"},
			excludes: []string{"Fireball", "Cure Wounds"},
			summary:  "1 of 3 spells",
		},
		{
			name:     "names only",
			args:     []string{"--search", "force", "--no-descriptions"},
			excludes: []string{"Shield"},
			summary:  "0 of 3 spells",
		},
		{
			name:     "whole word",
			args:     []string{"--search", "fire", "--whole-word"},
			contains: []string{"Fireball"},
			summary:  "1 of 3 spells",
		},
		{
			name:    "case sensitive",
			args:    []string{"--search", "SHIELD", "--case-sensitive"},
			summary: "0 of 3 spells",
		},
		{
			name:     "tag",
			args:     []string{"--tag", "Healing"},
			contains: []string{"Cure Wounds"},
			excludes: []string{"Shield"},
			summary:  "1 of 3 spells",
		},
		{
			name:     "flat list shows levels",
			args:     []string{"--no-group-by-level"},
			contains: []string{"* Fireball  [Fire]  level 3", "  Shield  level 1"},
			excludes: []string{"Level 1"},
			summary:  "3 of 3 spells",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.run(t, "", append([]string{"list"}, tt.args...)...)
			require.Equal(t, 0, res.code, res.err)
			for _, s := range tt.contains {
				assert.Contains(t, res.out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, res.out, s)
			}
			assert.Contains(t, res.out, tt.summary)
		})
	}
}

func TestList_UnknownTag(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "", "list", "--tag", "Necromancy")
	assert.Equal(t, 3, res.code)
	assert.Contains(t, res.err, `no tag named "Necromancy"`)
}

func TestShow(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "", "show", "fireball")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "* Fireball")
	assert.Contains(t, res.out, "[Fire]")
	assert.Contains(t, res.out, "Range: 150 feet")
	assert.Contains(t, res.out, "8d6 fire damage.")
	assert.NotContains(t, res.out, "**")

	res = env.run(t, "", "show", "Fireball", "--html")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "<strong>8d6</strong>")

	res = env.run(t, "", "show", "Wish")
	assert.Equal(t, 3, res.code)
}

func TestCardAdd_CreatesDeck(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, "", "card", "add", "Magic Missile",
		"--level", "1",
		"--attr", "School=Evocation",
		"--description", "Three glowing darts.",
		"--favorite",
	)
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "added Magic Missile (level 1)")

	deck := env.readDeck(t, env.deck)
	require.Equal(t, 1, deck.Cards().Len())
	card := deck.Cards().Items()[0]
	assert.Equal(t, "Magic Missile", card.Name())
	assert.Equal(t, "1", card.Level())
	assert.True(t, card.IsFavorite())
	school, ok := card.Attribute("school")
	require.True(t, ok)
	assert.Equal(t, "Evocation", school)
	assert.Equal(t, "Three glowing darts.", card.Description())
}

func TestCardAdd_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "", "card", "add", "Light", "--tag", "Radiant")
	assert.Equal(t, 3, res.code)

	res = env.run(t, "", "card", "add", "Light", "--attr", "no-equals")
	assert.Equal(t, 4, res.code)

	res = env.run(t, "", "card", "add", "")
	assert.Equal(t, 4, res.code)
	assert.Contains(t, res.err, "a spell needs a name")

	assert.Equal(t, 3, env.readDeck(t, env.deck).Cards().Len(), "failed commands leave the file alone")
}

func TestCardCommands(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "", "card", "fav", "Fireball")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "Fireball is no longer a favourite")

	res = env.run(t, "", "card", "tag", "Shield", "Fire")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "tagged Shield with [Fire]")

	res = env.run(t, "", "card", "dup", "Shield")
	require.Equal(t, 0, res.code, res.err)

	res = env.run(t, "", "card", "set", "Cure Wounds",
		"--name", "Cure Light Wounds",
		"--attr", "Range=Touch",
		"--attr", "level=2",
		"--up", "Range",
	)
	require.Equal(t, 0, res.code, res.err)

	res = env.run(t, "", "card", "rm", "Fireball")
	require.Equal(t, 0, res.code, res.err)

	deck := env.readDeck(t, env.deck)
	assert.Equal(t, 3, deck.Cards().Len())

	shields := 0
	for _, c := range deck.Cards().All() {
		switch c.Name() {
		case "Shield":
			shields++
			require.Equal(t, 1, c.Tags().Len())
			assert.Equal(t, "Fire", c.Tags().Items()[0].Name())
		case "Cure Light Wounds":
			assert.Equal(t, "2", c.Level())
			assert.Equal(t, []domain.Attribute{
				{Key: "Range", Value: "Touch"},
				{Key: "Level", Value: "2"},
			}, c.Attributes().Items())
		default:
			t.Errorf("unexpected card %q", c.Name())
		}
	}
	assert.Equal(t, 2, shields)

	// Both copies of Shield share the deck's Fire tag.
	var tagged []*domain.Tag
	for _, c := range deck.Cards().All() {
		if c.Name() == "Shield" {
			tagged = append(tagged, c.Tags().Items()...)
		}
	}
	require.Len(t, tagged, 2)
	assert.Same(t, tagged[0], tagged[1])
}

func TestTagCommands(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "", "tag", "add", "Arcane", "--color", "#123456")
	require.Equal(t, 0, res.code, res.err)

	res = env.run(t, "", "tag", "add", "Arcane")
	assert.Equal(t, 4, res.code)

	res = env.run(t, "", "tag", "rename", "fire", "Flame")
	require.Equal(t, 0, res.code, res.err)

	res = env.run(t, "", "tag", "color", "Flame", "#abc")
	require.Equal(t, 0, res.code, res.err)

	res = env.run(t, "", "tag", "color", "Flame", "orange")
	assert.Equal(t, 5, res.code)

	res = env.run(t, "", "tags")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "[Arcane]")
	assert.Contains(t, res.out, "#123456")
	assert.Contains(t, res.out, "#aabbcc")
	assert.Contains(t, res.out, "1 spells")

	res = env.run(t, "", "tag", "rm", "Flame")
	require.Equal(t, 0, res.code, res.err)

	deck := env.readDeck(t, env.deck)
	_, ok := deck.TagByName("Flame")
	assert.False(t, ok)
	for _, c := range deck.Cards().All() {
		if c.Name() == "Fireball" {
			assert.Equal(t, 0, c.Tags().Len(), "removing a tag removes it from its spells")
		}
	}
}

func TestConvert(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)
	out := filepath.Join(env.dir, "wizard.scdeck")

	res := env.run(t, "", "convert", env.deck, out)
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "3 spells, 2 tags")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Greater(t, len(data), 16)
	assert.Equal(t, []byte{0x00, 'D', 'E', 'C', 'K', 'v', 0x01, 0x00}, data[:8])
	assert.Equal(t, 3, env.readDeck(t, out).Cards().Len())
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "", "search", "fire")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "Fireball")
	assert.NotContains(t, res.out, "Shield")

	res = env.run(t, "", "search", "--level", "1")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "Cure Wounds")
	assert.Contains(t, res.out, "Shield")
	assert.Contains(t, res.out, "2 matches")
}

func TestRecentAndRecover(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "", "card", "fav", "Fireball")
	require.Equal(t, 0, res.code, res.err)

	res = env.run(t, "", "recent")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, env.deck)

	out := filepath.Join(env.dir, "recovered.scdeck")
	res = env.run(t, "", "recover", env.deck, out)
	require.Equal(t, 0, res.code, res.err)

	deck := env.readDeck(t, out)
	assert.Equal(t, 3, deck.Cards().Len())
	for _, c := range deck.Cards().All() {
		assert.False(t, c.IsFavorite(), "snapshot holds the saved content")
	}

	res = env.run(t, "", "recent", "--forget", env.deck)
	require.Equal(t, 0, res.code, res.err)
	res = env.run(t, "", "recover", env.deck, out)
	assert.Equal(t, 3, res.code)
}

func TestShell(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	script := strings.Join([]string{
		`tag add Arcane`,
		`card tag "Shield" 'Arcane'`,
		`status`,
		`bogus`,
		`quit`,
		`y`,
	}, "\n") + "\n"

	res := env.run(t, script, "shell")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "wizard.json> ")
	assert.Contains(t, res.out, "*wizard.json  3 spells, 3 tags")
	assert.Contains(t, res.out, `error: unknown command "bogus"`)
	assert.Contains(t, res.out, "warning: Save: wizard.json has unsaved changes")

	deck := env.readDeck(t, env.deck)
	for _, c := range deck.Cards().All() {
		if c.Name() == "Shield" {
			require.Equal(t, 1, c.Tags().Len())
			assert.Equal(t, "Arcane", c.Tags().Items()[0].Name())
		}
	}
}

func TestShell_DiscardOnEOF(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "card rm Shield\n", "shell")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "unsaved changes discarded")
	assert.Equal(t, 3, env.readDeck(t, env.deck).Cards().Len())
}

func TestShell_FilterSettles(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	in, feed := io.Pipe()
	defer feed.Close()

	var out syncBuffer
	done := make(chan result, 1)
	go func() {
		done <- env.runInput(ctx, in, &out, "--search-debounce", "200ms", "shell")
	}()

	_, err := io.WriteString(feed, "filter fi\nfilter fire\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `1 of 3 spells match "fire"`)
	}, 5*time.Second, 10*time.Millisecond)
	assert.NotContains(t, out.String(), `match "fi"`, "only the settled filter is listed")
	assert.Contains(t, out.String(), "* Fireball")

	_, err = io.WriteString(feed, "quit\n")
	require.NoError(t, err)

	res := <-done
	require.Equal(t, 0, res.code, res.err)
}

func TestShell_FilterWithoutDebounce(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "filter shield\nquit\n", "--search-debounce", "0s", "shell")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, `1 of 3 spells match "shield"`)
}

func TestWatch(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out syncBuffer
	done := make(chan result, 1)
	go func() {
		done <- env.runWithContext(ctx, "", &out, "--watch-settle", "20ms", "watch", "--once")
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "watching ")
	}, 5*time.Second, 10*time.Millisecond)

	deck := env.readDeck(t, env.deck)
	deck.AddCard(domain.NewCard("Light"))
	f, err := os.Create(env.deck)
	require.NoError(t, err)
	require.NoError(t, deckfile.Write(f, deck, deckfile.FormatJSON, deckfile.WriteOptions{}))
	require.NoError(t, f.Close())

	res := <-done
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "reloaded "+env.deck+": 4 spells, 2 tags")
}

func TestUsageErrors(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixture(t)

	res := env.run(t, "", "lsit")
	assert.Equal(t, 4, res.code)
	assert.Contains(t, res.err, `did you mean "list"`)

	res = env.run(t, "", "show")
	assert.Equal(t, 4, res.code)

	res = env.run(t, "", "list", "--bogus")
	assert.Equal(t, 4, res.code)

	var out syncBuffer
	app := New(strings.NewReader(""), &out, &out, "1.2.3")
	assert.Equal(t, 4, app.Main(context.Background(), []string{
		"--env-file", filepath.Join(env.dir, "none.env"),
		"--data-path", filepath.Join(env.dir, "data"),
		"list",
	}))
}

func TestHelpAndVersion(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, "", "version")
	require.Equal(t, 0, res.code, res.err)
	assert.Equal(t, "spelldeck 1.2.3\n", res.out)

	res = env.run(t, "", "--help")
	require.Equal(t, 0, res.code)
	assert.Contains(t, res.out, "Commands:")
	assert.Contains(t, res.out, "--deck")

	res = env.run(t, "", "tag", "--help")
	require.Equal(t, 0, res.code)
	assert.Contains(t, res.out, "rename")
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: "", want: nil},
		{line: "  list  -s fire\n", want: []string{"list", "-s", "fire"}},
		{line: `card add "Magic Missile"`, want: []string{"card", "add", "Magic Missile"}},
		{line: `show 'Tasha''s'`, want: []string{"show", "Tashas"}},
		{line: `show Tasha\'s\ Laughter`, want: []string{"show", "Tasha's Laughter"}},
		{line: `tag add ""`, want: []string{"tag", "add", ""}},
		{line: `show "open`, wantErr: true},
	}
	for _, tt := range tests {
		got, err := splitArgs(tt.line)
		if tt.wantErr {
			assert.Error(t, err, tt.line)
			continue
		}
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{{Name: "list"}, {Name: "show"}, {Name: "search"}}
	assert.Equal(t, "list", suggestCommand("lst", commands))
	assert.Equal(t, "search", suggestCommand("serch", commands))
	assert.Equal(t, "", suggestCommand("recover", commands))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}

func TestLinePrompter(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		input   string
		buttons session.Buttons
		want    session.Answer
	}{
		{"yes", "y\n", session.ButtonsYesNoCancel, session.AnswerYes},
		{"no", "No\n", session.ButtonsYesNoCancel, session.AnswerNo},
		{"empty cancels", "\n", session.ButtonsYesNoCancel, session.AnswerCancel},
		{"empty declines", "\n", session.ButtonsYesNo, session.AnswerNo},
		{"eof cancels", "", session.ButtonsYesNoCancel, session.AnswerCancel},
		{"ok needs no input", "", session.ButtonsOK, session.AnswerOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			app := New(strings.NewReader(tt.input), &out, &out, "")
			p := newLinePrompter(app.in, &out)
			got, err := p.Warning(ctx, "Save", "Save changes?", tt.buttons)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "warning: Save: Save changes?")
		})
	}
}
