package templates

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	oerrors "github.com/choreops/dashctl/internal/errors"
)

func userContext(name, id string) RenderContext {
	return RenderContext{
		User:      &User{Name: name, UserID: id},
		EntryID:   "entry1",
		UI:        map[string]interface{}{"points": "Points", "chores": "Chores"},
		Dashboard: DashboardMeta{Name: "Chores", URLPath: "kcd-chores", Language: "en"},
	}
}

func execute(t *testing.T, src string, rc RenderContext) string {
	t.Helper()
	tmpl, err := Compile("test", []byte(src))
	require.NoError(t, err)
	out, err := tmpl.Execute("view", rc)
	require.NoError(t, err)
	return string(out)
}

func TestExecute_Variables(t *testing.T) {
	rc := userContext("Zoë Ann", "u1")

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"plain", "<< user.name >>", "Zoë Ann"},
		{"slug", "<< user.slug >>", "zoe_ann"},
		{"filters chain", "<< user.name | slugify | upper >>", "ZOE_ANN"},
		{"lower", "<< dashboard.name | lower >>", "chores"},
		{"title", "<< 'weekly chores' | title >>", "Weekly Chores"},
		{"quote", `<< user.name | quote >>`, `"Zoë Ann"`},
		{"tojson", "<< ui | tojson >>", `{"chores":"Chores","points":"Points"}`},
		{"helper key", "<< helper_key >>", "entry1_u1"},
		{"entry id", "<< integration.entry_id >>", "entry1"},
		{"translation", "<< ui.points >>", "Points"},
		{"spacing", "<<user.user_id>>", "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, execute(t, tt.src, rc))
		})
	}
}

func TestExecute_Conditionals(t *testing.T) {
	src := `<% if user.name == "Ann" %>a<% elif user.name == 'Bob' %>b<% else %>c<% endif %>`

	assert.Equal(t, "a", execute(t, src, userContext("Ann", "1")))
	assert.Equal(t, "b", execute(t, src, userContext("Bob", "2")))
	assert.Equal(t, "c", execute(t, src, userContext("Cy", "3")))
}

func TestExecute_BooleanOperators(t *testing.T) {
	rc := RenderContext{Values: map[string]interface{}{"flag": false, "n": 2}}
	src := `<% if not flag and (n == 2 or n != 3) %>yes<% else %>no<% endif %>`
	assert.Equal(t, "yes", execute(t, src, rc))

	rc.Values["flag"] = true
	assert.Equal(t, "no", execute(t, src, rc))
}

func TestExecute_ForLoop(t *testing.T) {
	rc := RenderContext{Values: map[string]interface{}{
		"chores": []interface{}{"dishes", "trash"},
		"users": []interface{}{
			map[string]interface{}{"name": "Ann"},
			map[string]interface{}{"name": "Bob"},
		},
	}}

	assert.Equal(t, "- dishes\n- trash\n", execute(t, "<% for c in chores %>- << c >>\n<% endfor %>", rc))
	assert.Equal(t, "Ann,Bob,", execute(t, "<% for u in users %><< u.name >>,<% endfor %>", rc))
}

func TestExecute_TrimMarkers(t *testing.T) {
	src := "a\n  <%- if true -%>\n  b\n<%- endif %>\nc"
	assert.Equal(t, "ab\nc", execute(t, src, RenderContext{}))
}

func TestExecute_HostMarkersPassThrough(t *testing.T) {
	rc := userContext("Ann", "u1")

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"host expression with build-time variable inside",
			"content: >-\n  {{ states('sensor.kc_' ~ '<< user.slug >>' ~ '_points') }}\n",
			"content: >-\n  {{ states('sensor.kc_' ~ 'ann' ~ '_points') }}\n",
		},
		{
			"host statements and comments",
			"{% if is_state('x', 'on') %}{# host comment #}on{% endif %}",
			"{% if is_state('x', 'on') %}{# host comment #}on{% endif %}",
		},
		{
			"build comment stripped, host comment kept",
			"a<# build #>b{# host #}c",
			"ab{# host #}c",
		},
		{
			"angle brackets that are not markers",
			"a < b and c > d, x<y",
			"a < b and c > d, x<y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, execute(t, tt.src, rc))
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"unclosed comment", "title: x\n<# abc", `unclosed "<#"`},
		{"stray comment close", "abc #> d", `"#>" without matching "<#"`},
		{"comment close in host markup", "value: \"{{ '#>' }}\"", `"#>" without matching "<#"`},
		{"yaml merge key", "base: &b {a: 1}\nview:\n  <<: *b\n", `unclosed "<<"`},
		{"nested comment", "<# a <# b #>", "nested"},
		{"unclosed variable", "<< user.name", `unclosed "<<"`},
		{"unclosed statement", "<% if x", `unclosed "<%"`},
		{"empty variable", "<<  >>", "empty variable"},
		{"unknown statement", "<% while x %>", "unknown statement"},
		{"endif without if", "<% endif %>", "endif without open if"},
		{"else without if", "<% else %>", "else without open if"},
		{"crossed blocks", "<% if a %><% for x in b %><% endif %>", "endif without open if"},
		{"unclosed block", "<% if true %>x", "if block is never closed"},
		{"bad for", "<% for in x %><% endfor %>", "for:"},
		{"unknown filter", "<< user.name | shout >>", "unknown filter"},
		{"control character", "a\x02b", "control character"},
		{"bad expression", "<< user.name == >>", "unexpected end"},
		{"unterminated string", `<< "abc >>`, "unterminated string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("user-gamification-v1", []byte(tt.src))
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %T: %v", err, err)
			assert.Equal(t, "user-gamification-v1", pe.TemplateID)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.ErrorIs(t, err, oerrors.ErrRenderParse)
		})
	}
}

func TestCompile_ErrorLine(t *testing.T) {
	_, err := Compile("t", []byte("title: x\npath: y\n<# never closed"))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
}

func TestExecute_UndefinedVariable(t *testing.T) {
	tmpl, err := Compile("admin-shared-v1", []byte("title: << user.name >>"))
	require.NoError(t, err)

	// The shared admin view has no user.
	_, err = tmpl.Execute("admin", RenderContext{EntryID: "e"})
	require.Error(t, err)

	var ee *ExecError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "admin", ee.ViewID)
	assert.ErrorIs(t, err, oerrors.ErrRenderParse)
}

func TestHeader(t *testing.T) {
	src := "<# Template: user-gamification-v1\n   Vars: user.name #>\ntitle: x"
	tmpl, err := Compile("t", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "Template: user-gamification-v1\n   Vars: user.name", tmpl.Header())
	out, err := tmpl.Execute("v", RenderContext{})
	require.NoError(t, err)
	assert.Equal(t, "\ntitle: x", string(out))

	later, err := Compile("t", []byte("title: x\n<# not a header #>"))
	require.NoError(t, err)
	assert.Empty(t, later.Header())
}

func TestRenderer_Render(t *testing.T) {
	src := []byte(`<# user view #>
title: << user.name >>
path: << user.slug >>
sections:
  - type: grid
    cards:
      - type: markdown
        content: >-
          {{ state_attr('sensor.kc_<< user.slug >>_ui_dashboard_helper', 'chores') | count }}
`)

	r := NewRenderer()
	frag, err := r.Render("user-gamification-v1", "user:u1", src, userContext("Ann Lee", "u1"))
	require.NoError(t, err)

	assert.Equal(t, "Ann Lee", frag.Title)
	assert.Equal(t, "ann_lee", frag.Path)
	assert.Equal(t, "user:u1", frag.ViewID)
	assert.Contains(t, string(frag.Raw), "{{ state_attr('sensor.kc_ann_lee_ui_dashboard_helper', 'chores') | count }}")

	// Compiled once; a different source under the same id is ignored.
	again, err := r.Compile("user-gamification-v1", []byte("<% broken"))
	require.NoError(t, err)
	assert.Equal(t, "user view", again.Header())
}

func TestRenderer_ViewsWrapperRejected(t *testing.T) {
	src := []byte("views:\n  - title: << user.name >>\n    path: x\n    cards: []\n")

	_, err := NewRenderer().Render("legacy-v0", "user:u1", src, userContext("Ann", "u1"))
	var se *ShapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "legacy-v0", se.TemplateID)
	assert.Contains(t, se.Msg, "views")
}

func TestParseFragment(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantMsg string
	}{
		{"sections view", "title: A\npath: a\nsections: []\n", ""},
		{"cards view", "title: A\npath: a\ncards:\n  - type: markdown\n", ""},
		{"views wrapper", "views:\n  - title: A\n", "views"},
		{"list", "- title: A\n  path: a\n  cards: []\n", "list"},
		{"two documents", "title: A\npath: a\ncards: []\n---\ntitle: B\npath: b\ncards: []\n", "more than one document"},
		{"scalar", "hello", "not a mapping"},
		{"empty", "  \n", "empty"},
		{"invalid yaml", "title: [unclosed\n", "not valid YAML"},
		{"no title", "path: a\ncards: []\n", "no title"},
		{"no path", "title: A\ncards: []\n", "no path"},
		{"no body", "title: A\npath: a\n", "neither sections nor cards"},
		{"cards not a list", "title: A\npath: a\ncards: x\n", "must be a list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, err := ParseFragment("t", "v", []byte(tt.out))
			if tt.wantMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, "A", frag.Title)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.ErrorIs(t, err, oerrors.ErrRenderParse)
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Ann Lee":         "ann_lee",
		"Zoë":             "zoe",
		"  Multiple   ":   "multiple",
		"Kid #2 (Ålborg)": "kid_2_alborg",
		"!!!":             "unknown",
		"":                "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
	assert.Equal(t, "chore-dashboard", SlugifySep("Chore Dashboard", "-"))
}

func TestRenderContext_Data(t *testing.T) {
	rc := userContext("Ann", "u1")
	rc.Values = map[string]interface{}{"user": "shadowed", "points_total": 42}

	data := rc.Data()
	assert.Equal(t, 42, data["points_total"])
	user, ok := data["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ann", user["slug"])

	shared := RenderContext{EntryID: "e1", Values: map[string]interface{}{"user": "x"}}.Data()
	_, hasUser := shared["user"]
	assert.False(t, hasUser)
	assert.Equal(t, "e1", shared["helper_key"])
}

var literalPieces = []string{
	"{{ states('sensor.x') }}",
	"{% if is_state('a', 'on') %}",
	"{% endif %}",
	"{# host comment #}",
	"{{ value | int(0) }}",
	"content: >-\n",
	"  - type: markdown\n",
	"\n",
	" ",
	"a > b",
	"%}",
	"}}",
}

func TestProperty_HostMarkupPassesThrough(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		var src, want strings.Builder
		for i := 0; i < n; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "kind") {
			case 0:
				p := rapid.SampledFrom(literalPieces).Draw(t, "piece")
				src.WriteString(p)
				want.WriteString(p)
			case 1:
				p := rapid.StringMatching(`[a-z0-9 _:.'()|-]{0,12}`).Draw(t, "text")
				src.WriteString(p)
				want.WriteString(p)
			case 2:
				src.WriteString("<# " + rapid.StringMatching(`[a-z ]{0,8}`).Draw(t, "comment") + " #>")
			}
		}

		tmpl, err := Compile("prop", []byte(src.String()))
		if err != nil {
			t.Fatalf("compile %q: %v", src.String(), err)
		}
		out, err := tmpl.Execute("v", RenderContext{})
		if err != nil {
			t.Fatalf("execute %q: %v", src.String(), err)
		}
		if string(out) != want.String() {
			t.Fatalf("output %q, want %q", out, want.String())
		}
	})
}

func TestProperty_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		title := rapid.StringMatching(`[A-Za-z][A-Za-z0-9 ]{0,15}`).Draw(t, "title")
		path := rapid.StringMatching(`[a-z][a-z0-9_]{0,10}`).Draw(t, "path")
		cards := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 4).Draw(t, "cards")

		var src strings.Builder
		src.WriteString("title: " + title + "\npath: " + path + "\ncards:\n")
		for _, c := range cards {
			src.WriteString("  - type: " + c + "\n")
		}
		if len(cards) == 0 {
			src.WriteString("  []\n")
		}

		frag, err := NewRenderer().Render("rt", "v", []byte(src.String()), RenderContext{})
		if err != nil {
			t.Fatalf("render %q: %v", src.String(), err)
		}
		got, err := frag.value()
		if err != nil {
			t.Fatal(err)
		}

		var direct map[string]interface{}
		if err := yaml.Unmarshal([]byte(src.String()), &direct); err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, direct, got)
	})
}
