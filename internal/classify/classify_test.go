package classify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fpang/ai-stylist/internal/outfit"
)

func classifyKeyword(t *testing.T, text string) []string {
	t.Helper()
	return NewKeyword(DefaultLexicon()).Classify(context.Background(), text, nil).Strings()
}

func TestKeywordClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty text", "", []string{}},
		{"no trigger", "please make it more colorful", []string{}},
		{"english forward trigger", "blue jacket, don't have shoes", []string{"shoes"}},
		{"english missing", "I am missing a belt today", []string{"belt"}},
		{"korean backward trigger", "벨트가 없어요", []string{"belt"}},
		{"korean window of three", "검은 구두 그리고 가방 없는데 다른 걸로", []string{"shoes", "bag"}},
		{"korean exclusion", "모자 빼고 추천해줘", []string{"hat"}},
		{"two triggers union", "시계 없음 and I'm without boots", []string{"shoes", "jewelry"}},
		{"token beyond window ignored", "부츠 정말 너무 많이 없어", []string{}},
		{"case insensitive", "Honestly I DON'T HAVE Sneakers", []string{"shoes"}},
		{"missing after the item", "my belt is missing", []string{"belt"}},
		{"missing after the item, short", "belt missing", []string{"belt"}},
		{"missing reads both sides", "hat missing and sneakers", []string{"hat", "shoes"}},
		{"curly apostrophe", "I don\u2019t have shoes", []string{"shoes"}},
		{"curly apostrophe uppercase", "Sorry, I DON\u2019T HAVE a belt", []string{"belt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyKeyword(t, tt.text)
			require.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestKeywordTriggerAtFirstTokenYieldsNothing(t *testing.T) {
	for _, text := range []string{
		"없어 벨트",
		"without shoes",
		"don't have shoes or belt",
		"missing bag",
	} {
		require.Empty(t, classifyKeyword(t, text), "text %q", text)
	}
}

func TestKeywordIsDeterministic(t *testing.T) {
	k := NewKeyword(DefaultLexicon())
	text := "코트 없는데 and missing sneakers"
	first := k.Classify(context.Background(), text, nil).Strings()
	for i := 0; i < 5; i++ {
		require.Equal(t, first, k.Classify(context.Background(), text, nil).Strings())
	}
}

type fakeAnalyzer struct {
	cats  []outfit.Category
	err   error
	calls int
	text  string
}

func (f *fakeAnalyzer) MissingCategories(_ context.Context, text string, _ map[outfit.Option]outfit.Recommendation) ([]outfit.Category, error) {
	f.calls++
	f.text = text
	return f.cats, f.err
}

func TestLLMClassify(t *testing.T) {
	a := &fakeAnalyzer{cats: []outfit.Category{outfit.Belt, "socks", outfit.Hat}}
	got := NewLLM(a).Classify(context.Background(), "no belt please", nil)
	require.ElementsMatch(t, []string{"belt", "hat"}, got.Strings())
	require.Equal(t, 1, a.calls)
}

func TestLLMClassifyFailureIsEmpty(t *testing.T) {
	a := &fakeAnalyzer{err: errors.New("boom")}
	got := NewLLM(a).Classify(context.Background(), "blue jacket, don't have shoes", nil)
	require.Equal(t, 0, got.Len())
}

func TestLLMClassifySkipsBlankText(t *testing.T) {
	a := &fakeAnalyzer{cats: []outfit.Category{outfit.Belt}}
	got := NewLLM(a).Classify(context.Background(), "   ", nil)
	require.Equal(t, 0, got.Len())
	require.Equal(t, 0, a.calls)
}

func TestFallbackUsesKeywordOnlyOnError(t *testing.T) {
	text := "blue jacket, don't have shoes"

	failing := NewFallback(&fakeAnalyzer{err: errors.New("timeout")}, NewKeyword(DefaultLexicon()))
	require.Equal(t, []string{"shoes"}, failing.Classify(context.Background(), text, nil).Strings())

	empty := NewFallback(&fakeAnalyzer{}, NewKeyword(DefaultLexicon()))
	require.Equal(t, 0, empty.Classify(context.Background(), text, nil).Len())
}

func TestNewStrategies(t *testing.T) {
	a := &fakeAnalyzer{}

	c, err := New(StrategyKeyword, nil, nil)
	require.NoError(t, err)
	require.IsType(t, &Keyword{}, c)

	c, err = New(StrategyLLM, a, nil)
	require.NoError(t, err)
	require.IsType(t, &LLM{}, c)

	c, err = New(StrategyHybrid, a, nil)
	require.NoError(t, err)
	require.IsType(t, &Fallback{}, c)

	_, err = New(StrategyLLM, nil, nil)
	require.Error(t, err)

	_, err = New("magic", a, nil)
	require.Error(t, err)
}

func TestLoadLexicon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	content := `
triggers:
  - phrase: "need"
    direction: after
synonyms:
  belt: ["belt", "strap"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	require.Len(t, lex.Triggers, 1)

	got := NewKeyword(lex).Classify(context.Background(), "I need strap", nil)
	require.Equal(t, []string{"belt"}, got.Strings())
}

func TestLoadLexiconRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown category": "triggers:\n  - phrase: x\n    direction: after\nsynonyms:\n  socks: [sock]\n",
		"bad direction":    "triggers:\n  - phrase: x\n    direction: sideways\n",
		"no triggers":      "synonyms:\n  belt: [belt]\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		_, err := LoadLexicon(path)
		require.Error(t, err, name)
	}

	path := filepath.Join(dir, "both.yaml")
	require.NoError(t, os.WriteFile(path, []byte("triggers:\n  - phrase: gone\n    direction: both\nsynonyms:\n  hat: [hat]\n"), 0o600))
	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	require.Equal(t, []string{"hat"}, NewKeyword(lex).Classify(context.Background(), "my hat gone", nil).Strings())

	_, err = LoadLexicon(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
}
