package hosting_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/provisionkit/provision-go/domain/tool"
	"github.com/provisionkit/provision-go/infrastructure/resilience"
	"github.com/provisionkit/provision-go/infrastructure/security/vault"
	"github.com/provisionkit/provision-go/pack/hosting"
)

func newPack(t *testing.T, provider *hosting.MemoryProvider, v *vault.Vault) []tool.Tool {
	t.Helper()
	p, err := hosting.New(provider, v,
		hosting.WithRetryPolicy(resilience.Policy{
			MaxRetries:        2,
			InitialDelay:      time.Millisecond,
			RetryableStatuses: []int{429, 500, 502, 503, 504},
			Label:             "hosting",
		}),
		hosting.WithReadiness(time.Millisecond, time.Second),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p.Tools
}

func execute(t *testing.T, tools []tool.Tool, name, input string) (map[string]any, error) {
	t.Helper()
	for _, tl := range tools {
		if tl.Name() != name {
			continue
		}
		result, err := tl.Execute(context.Background(), json.RawMessage(input))
		if err != nil {
			return nil, err
		}
		var out map[string]any
		if err := json.Unmarshal(result.Output, &out); err != nil {
			t.Fatalf("output of %s is not an object: %v", name, err)
		}
		return out, nil
	}
	t.Fatalf("tool %s not in pack", name)
	return nil, nil
}

func liveSite(t *testing.T, provider *hosting.MemoryProvider) string {
	t.Helper()
	site, err := provider.CreateSite(context.Background(), "app")
	if err != nil {
		t.Fatalf("CreateSite() error = %v", err)
	}
	if _, err := provider.GetSite(context.Background(), site.ID); err != nil {
		t.Fatalf("GetSite() error = %v", err)
	}
	return site.ID
}

func TestSiteCreate_WaitsForLive(t *testing.T) {
	t.Parallel()

	provider := hosting.NewMemoryProvider()
	provider.ReadyAfter = 2
	v, err := vault.New()
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}
	tools := newPack(t, provider, v)

	out, err := execute(t, tools, "site_create", `{"name":"app"}`)
	if err != nil {
		t.Fatalf("site_create error = %v", err)
	}
	if out["status"] != "live" {
		t.Errorf("status = %v, want live", out["status"])
	}
	url, _ := out["url"].(string)
	if !strings.HasPrefix(url, "https://") {
		t.Errorf("url = %q, want an https URL", url)
	}
}

func TestFilesPush(t *testing.T) {
	t.Parallel()

	provider := hosting.NewMemoryProvider()
	v, err := vault.New()
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}
	tools := newPack(t, provider, v)
	id := liveSite(t, provider)

	out, err := execute(t, tools, "files_push",
		`{"site_id":"`+id+`","files":[{"path":"index.html","content":"<h1>hi</h1>"},{"path":"style.css","content":"body{}"}]}`)
	if err != nil {
		t.Fatalf("files_push error = %v", err)
	}
	if out["files"] != float64(2) {
		t.Errorf("files = %v, want 2", out["files"])
	}

	_, err = execute(t, tools, "files_push", `{"site_id":"`+id+`","files":[]}`)
	if err == nil {
		t.Error("files_push with no files should fail")
	}
}

func TestEnvSet_ResolvesSecretReference(t *testing.T) {
	t.Parallel()

	provider := hosting.NewMemoryProvider()
	v, err := vault.New()
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}
	if err := v.Store("api_key", "plaintext-credential"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	tools := newPack(t, provider, v)
	id := liveSite(t, provider)

	out, err := execute(t, tools, "env_set",
		`{"site_id":"`+id+`","key":"API_KEY","value":"{{secrets.api_key}}"}`)
	if err != nil {
		t.Fatalf("env_set error = %v", err)
	}
	if out["set"] != true {
		t.Errorf("set = %v, want true", out["set"])
	}

	// The resolved value reaches the provider but never the tool output.
	raw, _ := json.Marshal(out)
	if strings.Contains(string(raw), "plaintext-credential") {
		t.Error("tool output leaks the resolved secret")
	}
	if got := provider.Env(id)["API_KEY"]; got != "plaintext-credential" {
		t.Errorf("provider env = %q, want the resolved secret", got)
	}
}

func TestEnvSet_MissingSecret(t *testing.T) {
	t.Parallel()

	provider := hosting.NewMemoryProvider()
	v, err := vault.New()
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}
	tools := newPack(t, provider, v)
	id := liveSite(t, provider)

	_, err = execute(t, tools, "env_set",
		`{"site_id":"`+id+`","key":"API_KEY","value":"{{secrets.never_stored}}"}`)
	if err == nil {
		t.Fatal("env_set with a dangling reference should fail")
	}
}
