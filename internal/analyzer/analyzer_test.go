package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/formfill/internal/crawler"
	"github.com/v0xg/formfill/internal/crawler/crawlertest"
	"github.com/v0xg/formfill/internal/dom"
	"github.com/v0xg/formfill/internal/form"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const emailPage = `<html><body><form><input name="email" type="text"><button type="submit">Send</button></form></body></html>`

func parse(t *testing.T, src string) *goquery.Document {
	t.Helper()
	doc, err := dom.Parse(src)
	require.NoError(t, err)
	return doc
}

func names(fields []form.Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

func TestLocateFormTiers(t *testing.T) {
	tests := []struct {
		name   string
		page   string
		tier   Tier
		nodeID string
		inputs int
	}{
		{
			name:   "explicit form wins over containers",
			page:   `<div class="contact"><input name="x"></div><form id="f"><input name="a"><button type="submit">Go</button></form>`,
			tier:   TierForm,
			nodeID: "f",
			inputs: 1,
		},
		{
			name:   "first form holding an input",
			page:   `<form id="search"><input type="hidden" name="q"></form><form id="lead"><input name="a"></form>`,
			tier:   TierForm,
			nodeID: "lead",
			inputs: 1,
		},
		{
			name:   "falls back to the first form",
			page:   `<form id="empty"><input type="hidden" name="t"></form><div class="contact-form"><input name="a"></div>`,
			tier:   TierForm,
			nodeID: "empty",
			inputs: 0,
		},
		{
			name:   "container class",
			page:   `<div class="form-intro">Hello</div><section id="reach" class="contact"><input name="a"><button>Send</button></section>`,
			tier:   TierContainer,
			nodeID: "reach",
			inputs: 1,
		},
		{
			name:   "lowest common ancestor",
			page:   `<div id="outer"><div id="a"><input name="one"></div><div id="b"><textarea name="two"></textarea></div></div>`,
			tier:   TierInputCluster,
			nodeID: "outer",
			inputs: 2,
		},
		{
			name:   "single input uses its parent",
			page:   `<main><p id="p"><input name="solo"></p></main>`,
			tier:   TierInputCluster,
			nodeID: "p",
			inputs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LocateForm(parse(t, tt.page))
			require.NoError(t, err)
			assert.Equal(t, tt.tier, c.Tier)
			assert.Equal(t, tt.nodeID, dom.Attr(c.Node, "id"))
			assert.Equal(t, tt.inputs, c.Inputs)
		})
	}
}

func TestLocateFormHasSubmit(t *testing.T) {
	c, err := LocateForm(parse(t, emailPage))
	require.NoError(t, err)
	assert.True(t, c.HasSubmit)

	c, err = LocateForm(parse(t, `<form><input name="a"><button type="button">Go</button></form>`))
	require.NoError(t, err)
	assert.False(t, c.HasSubmit)
}

func TestLocateFormNotFound(t *testing.T) {
	for _, page := range []string{
		`<p>Nothing to fill</p>`,
		`<input type="hidden" name="t"><input name="x" style="display:none"><input name="y" data-formfill-hidden="true">`,
		`<button type="submit">Send</button>`,
	} {
		_, err := LocateForm(parse(t, page))
		assert.ErrorIs(t, err, ErrNoFormFound)
	}
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "form", TierForm.String())
	assert.Equal(t, "container", TierContainer.String())
	assert.Equal(t, "input-group", TierInputCluster.String())
	assert.Equal(t, "unknown", Tier(0).String())
}

func TestLabelChain(t *testing.T) {
	doc := parse(t, `<span id="l1">First</span><span id="l2">Name</span>
<form>
  <input id="a" aria-label=" Full name ">
  <input id="b" aria-labelledby="l1 l2">
  <label for="c">Company</label><input id="c">
  <div><label>Budget</label><div><input name="budget"></div></div>
  <input name="city" placeholder="Your city">
  <input name="zip">
  <input id="only-id">
  <input>
</form>`)

	fields := ExtractFields(doc)
	var labels []string
	for _, f := range fields {
		labels = append(labels, f.Label)
	}
	assert.Equal(t, []string{
		"Full name", "First Name", "Company", "Budget", "Your city", "zip", "only-id", "Untitled Field",
	}, labels)
	assert.Equal(t, []string{
		"a", "b", "c", "budget", "city", "zip", "only-id", "untitled_field",
	}, names(fields))
}

func TestAncestorLabelStopsAtForm(t *testing.T) {
	doc := parse(t, `<div><label>Outside</label><form><input name="inner"></form></div>`)
	fields := ExtractFields(doc)
	require.Len(t, fields, 1)
	assert.Equal(t, "inner", fields[0].Label)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "your_full_name_", slugify("Your full name *"))
	assert.Equal(t, "e_mail", slugify("E--mail"))
	assert.Equal(t, "untitled_field", slugify(untitledLabel))
}

func TestSniffType(t *testing.T) {
	tests := []struct {
		name   string
		native form.FieldType
		want   form.FieldType
	}{
		{"email", form.TypeText, form.TypeEmail},
		{"work_email", form.TypeText, form.TypeEmail},
		{"name", form.TypeEmail, form.TypeEmail},
		{"email_or_phone", form.TypeEmail, form.TypeTel},
		{"mobile", form.TypeNumber, form.TypeTel},
		{"your_message", form.TypeText, form.TypeTextarea},
		{"comments", form.TypeText, form.TypeTextarea},
		{"Email", form.TypeText, form.TypeText},
		{"company", form.TypeURL, form.TypeURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sniffType(tt.name, tt.native)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, sniffType(tt.name, got), "sniffing must be idempotent")
		})
	}
}

func TestExtractFieldsOrder(t *testing.T) {
	doc := parse(t, `<form id="f1">
  <textarea name="msg"></textarea>
  <input name="a">
  <select name="s">
    <option value="">Choose</option>
    <option>One</option>
    <option disabled>Two</option>
    <option value="3">Three</option>
  </select>
</form>
<form id="f2"><input name="b"></form>`)

	fields := ExtractFields(doc)
	assert.Equal(t, []string{"a", "msg", "s", "b"}, names(fields))
	assert.Equal(t, form.TypeTextarea, fields[1].Type)
	assert.Equal(t, form.TypeSelect, fields[2].Type)
	assert.Equal(t, []string{"One", "Three"}, fields[2].Options)
	assert.Equal(t, "/html[1]/body[1]/form[@id='f2']/input[1]", fields[3].XPath)
}

func TestExtractFieldsSkipsHiddenAndButtons(t *testing.T) {
	doc := parse(t, `<form>
  <input type="hidden" name="token">
  <input name="ghost" data-formfill-hidden="true">
  <div hidden><input name="collapsed"></div>
  <input type="submit" value="Go">
  <input type="button" value="Go">
  <input type="reset">
  <input type="image" src="go.png">
  <input name="real">
</form>`)

	assert.Equal(t, []string{"real"}, names(ExtractFields(doc)))
}

func TestExtractFieldsRadioAndValidation(t *testing.T) {
	doc := parse(t, `<form>
  <input type="radio" name="plan" value="basic">
  <input type="radio" name="plan" value="pro">
  <input type="checkbox" name="agree" required>
  <input type="number" name="age" min="18" max="99.5">
  <input name="code" minlength="4" maxlength="8" pattern="[0-9]+" placeholder="Code">
  <input name="plain">
</form>`)

	fields := ExtractFields(doc)
	require.Len(t, fields, 6)

	assert.Equal(t, form.TypeRadio, fields[0].Type)
	assert.Equal(t, []string{"basic", "pro"}, fields[0].Options)
	assert.Equal(t, []string{"basic", "pro"}, fields[1].Options)

	assert.Equal(t, form.TypeCheckbox, fields[2].Type)
	assert.True(t, fields[2].Required)
	require.NotNil(t, fields[2].Validation)
	assert.True(t, fields[2].Validation.Required)

	age := fields[3].Validation
	require.NotNil(t, age)
	require.NotNil(t, age.Min)
	require.NotNil(t, age.Max)
	assert.Equal(t, 18.0, *age.Min)
	assert.Equal(t, 99.5, *age.Max)
	assert.Nil(t, age.MinLength)

	code := fields[4]
	require.NotNil(t, code.Validation)
	assert.Equal(t, 4, *code.Validation.MinLength)
	assert.Equal(t, 8, *code.Validation.MaxLength)
	assert.Equal(t, "[0-9]+", code.Validation.Pattern)
	assert.Equal(t, "Code", code.Placeholder)

	assert.Nil(t, fields[5].Validation)
}

func TestExtractFieldsScopes(t *testing.T) {
	t.Run("body fallback", func(t *testing.T) {
		fields := ExtractFields(parse(t, `<div><input name="q"></div>`))
		assert.Equal(t, []string{"q"}, names(fields))
	})

	t.Run("forms shadow containers", func(t *testing.T) {
		doc := parse(t, `<form id="f"><input type="hidden" name="t"></form><div class="contact"><input name="a"></div>`)

		c, err := LocateForm(doc)
		require.NoError(t, err)
		assert.Equal(t, TierForm, c.Tier)

		fields := ExtractFields(doc)
		assert.NotNil(t, fields)
		assert.Empty(t, fields)
	})

	t.Run("overlapping containers repeat fields", func(t *testing.T) {
		doc := parse(t, `<div class="contact-wrapper"><div class="contact-form"><input name="a"></div></div>`)
		assert.Equal(t, []string{"a", "a"}, names(ExtractFields(doc)))
	})
}

func TestFindSubmit(t *testing.T) {
	tests := []struct {
		name string
		page string
		want form.SubmitControl
	}{
		{
			name: "verified submit button",
			page: emailPage,
			want: form.SubmitControl{
				Selector: `button[type="submit"]`,
				XPath:    "/html[1]/body[1]/form[1]/button[1]",
				Text:     "Send",
			},
		},
		{
			name: "submit input verified by value",
			page: `<form><button type="button">Cancel</button><input type="submit" value="Request a quote"></form>`,
			want: form.SubmitControl{
				Selector: `input[type="submit"]`,
				XPath:    "/html[1]/body[1]/form[1]/input[1]",
				Text:     "Request a quote",
			},
		},
		{
			name: "verified by id",
			page: `<div><span role="button" id="submit-lead">Go</span></div>`,
			want: form.SubmitControl{
				Selector: `[role="button"]`,
				XPath:    "/html[1]/body[1]/div[1]/span[@id='submit-lead']",
				Text:     "Go",
			},
		},
		{
			name: "broad pass",
			page: `<button>Cancel</button><button id="send-btn">Send</button>`,
			want: form.SubmitControl{
				Selector: "#send-btn",
				XPath:    "/html[1]/body[1]/button[@id='send-btn']",
				Text:     "Send",
			},
		},
		{
			name: "broad pass without id",
			page: `<button>Cancel</button><button class="btn">SUBMIT</button>`,
			want: form.SubmitControl{
				XPath: "/html[1]/body[1]/button[2]",
				Text:  "SUBMIT",
			},
		},
		{
			name: "request only counts when verified",
			page: `<button>Cancel</button><button>Request info</button>`,
		},
		{
			name: "no controls",
			page: `<form><input name="a"></form>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindSubmit(parse(t, tt.page))
			assert.Empty(t, cmp.Diff(tt.want, got))
			assert.Equal(t, tt.want.XPath != "", got.Found())
		})
	}
}

func TestDetectName(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{"heading in form", `<form><h3>Book a demo</h3><input name="a"></form>`, "Book a demo"},
		{"form-ish container", `<div class="form-box"><h2> Get in touch </h2><form><input name="a"></form></div>`, "Get in touch"},
		{"title class", `<form><p class="title">Newsletter</p><input name="a"></form>`, "Newsletter"},
		{"heading near form", `<section><h3>Write to us</h3><div><form><input name="a"></form></div></section>`, "Write to us"},
		{"nothing", `<h1>Site</h1><form><input name="a"></form>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectName(parse(t, tt.page)))
		})
	}
}

func TestAnalyzeEmailScenario(t *testing.T) {
	a := New(&crawlertest.Opener{}, Options{}, nil)

	f, err := a.Analyze("https://example.com/contact", emailPage)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/contact", f.URL)
	assert.Equal(t, DefaultFormName, f.Name)
	require.Len(t, f.Fields, 1)
	assert.Equal(t, "email", f.Fields[0].Name)
	assert.Equal(t, form.TypeEmail, f.Fields[0].Type)
	assert.Equal(t, `[name="email"]`, f.Fields[0].Selector)
	assert.Equal(t, "/html[1]/body[1]/form[1]/input[1]", f.Fields[0].XPath)
	assert.Equal(t, "Send", f.SubmitButton.Text)
	assert.Equal(t, "/html[1]/body[1]/form[1]/button[1]", f.SubmitButton.XPath)
}

func TestAnalyzeLogsMissingSubmit(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	a := New(&crawlertest.Opener{}, Options{}, zap.New(core))

	f, err := a.Analyze("https://example.com", `<form><input name="a"></form>`)
	require.NoError(t, err)
	assert.False(t, f.SubmitButton.Found())

	entries := logs.FilterMessage("submit control not found").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "analyzer", entries[0].LoggerName)
}

func TestDiscover(t *testing.T) {
	page := crawlertest.New(emailPage)
	opener := &crawlertest.Opener{Page: page}
	a := New(opener, Options{}, nil)

	f, err := a.Discover(context.Background(), "https://example.com/contact")
	require.NoError(t, err)
	assert.Equal(t, []string{"email"}, names(f.Fields))

	assert.Equal(t, []crawler.OpenOptions{{Headless: true}}, opener.Opened)
	nav := page.EventsFor("navigate")
	require.Len(t, nav, 1)
	assert.Equal(t, "https://example.com/contact", nav[0].Value)
	assert.True(t, page.Closed())
}

func TestDiscoverIsDeterministic(t *testing.T) {
	const src = `<div class="contact-form"><h2>Talk to sales</h2>
<label for="n">Name</label><input id="n">
<input name="phone" placeholder="Phone">
<textarea name="message" aria-label="Message"></textarea>
<select name="topic"><option>Sales</option><option>Support</option></select>
<button class="submit-btn">Send</button></div>`

	a := New(&crawlertest.Opener{Page: crawlertest.New(src)}, Options{}, nil)
	first, err := a.Discover(context.Background(), "https://example.com")
	require.NoError(t, err)
	second, err := a.Discover(context.Background(), "https://example.com")
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second))
	assert.Equal(t, "Talk to sales", first.Name)
	assert.Equal(t, []string{"n", "phone", "message", "topic"}, names(first.Fields))
	assert.Equal(t, form.TypeTel, first.Fields[1].Type)
}

func TestDiscoverErrors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		page := crawlertest.New(emailPage)
		page.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

		_, err := New(&crawlertest.Opener{Page: page}, Options{}, nil).Discover(context.Background(), "https://nope.invalid")
		assert.ErrorIs(t, err, ErrPageUnreachable)
		assert.True(t, page.Closed())
	})

	t.Run("no form", func(t *testing.T) {
		page := crawlertest.New(`<p>Just text</p>`)

		_, err := New(&crawlertest.Opener{Page: page}, Options{}, nil).Discover(context.Background(), "https://example.com")
		assert.ErrorIs(t, err, ErrNoFormFound)
		assert.True(t, page.Closed())
	})

	t.Run("open fails", func(t *testing.T) {
		opener := &crawlertest.Opener{Err: errors.New("no browser")}

		_, err := New(opener, Options{}, nil).Discover(context.Background(), "https://example.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPageUnreachable)
	})

	t.Run("cancelled", func(t *testing.T) {
		page := crawlertest.New(emailPage)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(&crawlertest.Opener{Page: page}, Options{}, nil).Discover(ctx, "https://example.com")
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, page.Closed())
	})
}
