package indicator

import (
	"context"
	"strings"
	"testing"

	"github.com/nao1215/phishscan/internal/model"
)

func parse(t *testing.T, pageURL, body string) *Document {
	t.Helper()
	doc, err := Parse([]byte(body), pageURL)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func types(indicators []model.Indicator) []string {
	out := make([]string, len(indicators))
	for i, ind := range indicators {
		out[i] = ind.Type
	}
	return out
}

func TestSite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want string
	}{
		{"login.example.co.uk", "example.co.uk"},
		{"WWW.Example.COM", "example.com"},
		{"example.com.", "example.com"},
		{"192.168.0.1", "192.168.0.1"},
		{"localhost", "localhost"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			if got := Site(tt.host); got != tt.want {
				t.Errorf("Site(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	doc := parse(t, "https://example.com/account/", `<html><head>
<title>  Sign   in </title>
<meta http-equiv="Refresh" content="5; url=/next">
<link rel="stylesheet" href="css/site.css">
<script src="https://cdn.example.net/app.js"></script>
<script>var a = 1;</script>
</head><body>
<form action="verify.php"><input name="username"><input type="password" name="pw"></form>
<form action="/search"><input name="q"></form>
<img src="/logo.png">
<iframe src="https://frame.example.org/" hidden></iframe>
</body></html>`)

	if doc.Title != "Sign in" {
		t.Errorf("Title = %q", doc.Title)
	}
	if len(doc.Forms) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(doc.Forms))
	}
	if got := doc.Forms[0].Action.String(); got != "https://example.com/account/verify.php" {
		t.Errorf("relative action resolved to %q", got)
	}
	if !doc.Forms[0].HasPassword || !doc.Forms[0].Sensitive {
		t.Errorf("expected first form to be a credential form: %+v", doc.Forms[0])
	}
	if doc.Forms[1].Sensitive {
		t.Error("expected search form not to be sensitive")
	}
	if !doc.HasPasswordInput {
		t.Error("expected HasPasswordInput")
	}
	if len(doc.Refreshes) != 1 || !strings.Contains(doc.Refreshes[0], "url=/next") {
		t.Errorf("Refreshes = %v", doc.Refreshes)
	}
	if !strings.Contains(doc.Scripts, "var a = 1;") {
		t.Errorf("Scripts = %q", doc.Scripts)
	}
	if len(doc.Resources) != 3 {
		t.Errorf("expected 3 resources, got %d", len(doc.Resources))
	}
	if len(doc.Iframes) != 1 || !doc.Iframes[0].Hidden {
		t.Errorf("Iframes = %+v", doc.Iframes)
	}
}

func TestFormCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pageURL string
		body    string
		want    []string
	}{
		{
			name:    "credential form posts to another site",
			pageURL: "https://login.example.com/",
			body:    `<form action="https://collect.example.net/p.php"><input type="password"></form>`,
			want:    []string{model.IndicatorExternalFormAction},
		},
		{
			name:    "credential form posts to a sibling subdomain",
			pageURL: "https://www.example.com/",
			body:    `<form action="https://auth.example.com/login"><input type="password"></form>`,
			want:    nil,
		},
		{
			name:    "search form posts elsewhere",
			pageURL: "https://example.com/",
			body:    `<form action="https://www.google.com/search"><input name="q"></form>`,
			want:    nil,
		},
		{
			name:    "form mails the data",
			pageURL: "https://example.com/",
			body:    `<form action="mailto:drop@example.net"><input type="email" name="e"></form>`,
			want:    []string{model.IndicatorMailtoFormAction},
		},
		{
			name:    "password on plain http",
			pageURL: "http://example.com/",
			body:    `<form><input type="password"></form>`,
			want:    []string{model.IndicatorPasswordOverHTTP},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := types(NewFormCheck().Inspect(parse(t, tt.pageURL, tt.body)))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScriptCheck(t *testing.T) {
	t.Parallel()

	t.Run("detects eval of decoded payload", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, "https://example.com/", `<script>eval(atob("ZG9jdW1lbnQud3JpdGUoMSk="))</script>`)
		got := NewScriptCheck().Inspect(doc)
		if len(got) != 1 || got[0].Type != model.IndicatorJSObfuscation {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("ignores plain scripts", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, "https://example.com/", `<script>document.getElementById("x").focus();</script>`)
		if got := NewScriptCheck().Inspect(doc); len(got) != 0 {
			t.Errorf("expected no indicators, got %+v", got)
		}
	})
}

func TestRedirectCheck(t *testing.T) {
	t.Parallel()

	t.Run("meta refresh to another site", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, "https://example.com/", `<meta http-equiv="refresh" content="0; url=https://www.paypal.com/">`)
		got := NewRedirectCheck().Inspect(doc)
		if len(got) != 1 || got[0].Evidence != "https://www.paypal.com/" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("script redirect to another site", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, "https://example.com/", `<script>location.replace("https://other.example.org/done")</script>`)
		got := NewRedirectCheck().Inspect(doc)
		if len(got) != 1 || got[0].Type != model.IndicatorRedirect {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("same-site redirects are ignored", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, "https://example.com/", `<meta http-equiv="refresh" content="3;url=/home">
<script>window.location = "https://www.example.com/next";</script>`)
		if got := NewRedirectCheck().Inspect(doc); len(got) != 0 {
			t.Errorf("expected no indicators, got %+v", got)
		}
	})
}

func TestIframeCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"zero size", `<iframe src="https://x.example.org/" width="0" height="0"></iframe>`, 1},
		{"zero px", `<iframe src="https://x.example.org/" width="0px" height="10"></iframe>`, 1},
		{"display none", `<iframe src="https://x.example.org/" style="display: none"></iframe>`, 1},
		{"visibility hidden", `<iframe style="visibility:hidden"></iframe>`, 1},
		{"off screen", `<iframe src="/f" style="position:absolute; left:-9999px"></iframe>`, 1},
		{"hidden attribute", `<iframe src="/f" hidden></iframe>`, 1},
		{"visible", `<iframe src="https://www.youtube.com/embed/x" width="560" height="315"></iframe>`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewIframeCheck().Inspect(parse(t, "https://example.com/", tt.body))
			if len(got) != tt.want {
				t.Errorf("got %d indicators, want %d: %+v", len(got), tt.want, got)
			}
		})
	}
}

func TestResourceCheck(t *testing.T) {
	t.Parallel()

	t.Run("hot-linked brand assets", func(t *testing.T) {
		t.Parallel()

		var sb strings.Builder
		for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
			sb.WriteString(`<img src="https://www.paypalobjects.com/img/` + name + `.png">`)
		}
		sb.WriteString(`<img src="/local.png">`)

		got := NewResourceCheck().Inspect(parse(t, "https://example.com/", sb.String()))
		if len(got) != 1 || got[0].Evidence != "paypalobjects.com (6 of 7)" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("too few resources", func(t *testing.T) {
		t.Parallel()
		body := `<img src="https://cdn.example.net/1.png"><img src="https://cdn.example.net/2.png">`
		if got := NewResourceCheck().Inspect(parse(t, "https://example.com/", body)); len(got) != 0 {
			t.Errorf("expected no indicators, got %+v", got)
		}
	})

	t.Run("mostly local", func(t *testing.T) {
		t.Parallel()
		body := `<img src="/1.png"><img src="/2.png"><img src="/3.png"><img src="https://cdn.example.net/4.png"><img src="https://cdn.example.net/5.png">`
		if got := NewResourceCheck().Inspect(parse(t, "https://example.com/", body)); len(got) != 0 {
			t.Errorf("expected no indicators, got %+v", got)
		}
	})
}

func TestTitleCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pageURL string
		title   string
		want    int
	}{
		{"brand on foreign host", "https://secure-login.example.com/", "PayPal: Log in to your account", 1},
		{"brand on its own domain", "https://www.paypal.com/signin", "Log in to your PayPal account", 0},
		{"brand alias domain", "https://login.live.com/", "Sign in to your Microsoft account", 0},
		{"brand as part of a word", "https://example.com/", "Applesauce recipes", 0},
		{"no title", "https://example.com/", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := parse(t, tt.pageURL, "<title>"+tt.title+"</title>")
			if got := NewTitleCheck().Inspect(doc); len(got) != tt.want {
				t.Errorf("got %d indicators, want %d: %+v", len(got), tt.want, got)
			}
		})
	}
}

func TestInspector(t *testing.T) {
	t.Parallel()

	const phish = `<html><head><title>PayPal - Confirm</title>
<meta http-equiv="refresh" content="30; url=https://www.paypal.com/">
</head><body>
<form action="http://203.0.113.9/post.php"><input name="email"><input type="password" name="pass"></form>
<iframe src="/track" width="0" height="0"></iframe>
</body></html>`

	t.Run("reports every indicator, highest severity first", func(t *testing.T) {
		t.Parallel()

		page := &model.Page{
			URL:         "http://paypal-confirm.example.com/",
			FinalURL:    "http://paypal-confirm.example.com/",
			ContentType: "text/html; charset=utf-8",
			Raw:         []byte(phish),
		}
		got, err := New().Inspect(context.Background(), page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := map[string]bool{
			model.IndicatorExternalFormAction: true,
			model.IndicatorPasswordOverHTTP:   true,
			model.IndicatorRedirect:           true,
			model.IndicatorHiddenIframe:       true,
			model.IndicatorTitleMismatch:      true,
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d indicators, got %v", len(want), types(got))
		}
		for i, ind := range got {
			if !want[ind.Type] {
				t.Errorf("unexpected indicator %s", ind.Type)
			}
			if i > 0 && got[i-1].Severity < ind.Severity {
				t.Errorf("indicators not ordered by severity: %v", types(got))
			}
		}
	})

	t.Run("skips pages without HTML", func(t *testing.T) {
		t.Parallel()

		for _, page := range []*model.Page{
			nil,
			{URL: "https://example.com/a.pdf", ContentType: "application/pdf", Raw: []byte(phish)},
			{URL: "https://example.com/", ContentType: "text/html"},
		} {
			got, err := New().Inspect(context.Background(), page)
			if err != nil || got != nil {
				t.Errorf("expected nothing, got %v, %v", got, err)
			}
		}
	})

	t.Run("custom checks and deduplication", func(t *testing.T) {
		t.Parallel()

		twice := checkFunc(func(*Document) []model.Indicator {
			ind := model.NewIndicator(model.IndicatorHiddenIframe, "same")
			return []model.Indicator{ind, ind}
		})
		page := &model.Page{URL: "https://example.com/", Raw: []byte("<p>hi</p>")}

		insp := New(WithChecks())
		insp.Register(twice)
		got, err := insp.Inspect(context.Background(), page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected duplicates to collapse, got %d", len(got))
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		page := &model.Page{URL: "https://example.com/", Raw: []byte(phish)}
		if _, err := New().Inspect(ctx, page); err == nil {
			t.Error("expected context error")
		}
	})
}

type checkFunc func(*Document) []model.Indicator

func (f checkFunc) Name() string                            { return "func" }
func (f checkFunc) Inspect(doc *Document) []model.Indicator { return f(doc) }
