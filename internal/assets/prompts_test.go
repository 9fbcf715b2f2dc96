package assets

import (
	"bytes"
	"strings"
	"testing"
	"text/template"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/outfit"
)

func TestRenderRecommendPromptDefaults(t *testing.T) {
	got := RenderRecommendPrompt(outfit.Request{})

	for _, want := range []string{"나이: 미입력", "지역: 서울", "날씨: 날씨 정보 없음"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "추가 고려사항") {
		t.Error("considering section should be omitted when empty")
	}
	if strings.Contains(got, "겹치지 않는") {
		t.Error("exclusion section should be omitted when empty")
	}
}

func TestRenderRecommendPromptWithHistory(t *testing.T) {
	req := outfit.Request{
		RequestInfo: outfit.RequestInfo{
			Profile: outfit.Profile{Age: "31", Gender: "female"},
			Context: outfit.Context{Date: "2024-05-01", Location: "부산"},
			Style:   outfit.StyleRequest{Item: "셔츠", TPO: "출근", Mood: "미니멀"},
		},
		Weather:     "맑음, 기온 21°C",
		Considering: "  벨트는 없어요 ",
		Exclude: []outfit.SummaryPair{
			{A: "캐주얼", B: "포멀"},
			{A: "스트릿", B: "클래식"},
		},
	}

	got := RenderRecommendPrompt(req)

	for _, want := range []string{
		"나이: 31",
		"지역: 부산",
		"날씨: 맑음, 기온 21°C",
		"TPO: 출근",
		"추가 고려사항: 벨트는 없어요\n",
		"1. A: 캐주얼, B: 포멀\n2. A: 스트릿, B: 클래식",
	} {
		if !strings.Contains(got+"\n", want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestRenderAnalyzePrompt(t *testing.T) {
	got := RenderAnalyzePrompt("벨트 없어", `{"A":{"belt":"brown"}}`)
	if !strings.Contains(got, "벨트 없어") || !strings.Contains(got, `"belt":"brown"`) {
		t.Errorf("unexpected prompt:\n%s", got)
	}
	if !strings.Contains(got, "outer, top, bottom, shoes, bag, belt, hat, jewelry") {
		t.Errorf("category list missing:\n%s", got)
	}
}

func TestSystemPromptsEmbedded(t *testing.T) {
	if !strings.Contains(StylistSystemPrompt, "recommendation_A") {
		t.Error("stylist system prompt should describe the response shape")
	}
	if !strings.Contains(AnalyzeSystemPrompt, "missingCategories") {
		t.Error("analyze system prompt should describe the response shape")
	}
}

func TestRenderLogsExecutionError(t *testing.T) {
	var logs bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&logs)
	defer func() { log.Logger = saved }()

	tmpl := template.Must(template.New("broken").Parse("before {{.Missing.Field}} after"))
	got := render(tmpl, struct{ Missing *struct{ Field string } }{})

	if !strings.HasPrefix(got, "before ") {
		t.Errorf("partial output lost: %q", got)
	}
	if !strings.Contains(logs.String(), "Failed to render prompt template") || !strings.Contains(logs.String(), `"template":"broken"`) {
		t.Errorf("render error not logged: %s", logs.String())
	}
}
