package database_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/provisionkit/provision-go/domain/tool"
	"github.com/provisionkit/provision-go/infrastructure/resilience"
	"github.com/provisionkit/provision-go/infrastructure/security/vault"
	"github.com/provisionkit/provision-go/pack/database"
)

func fastPolicy() resilience.Policy {
	return resilience.Policy{
		MaxRetries:        2,
		InitialDelay:      time.Millisecond,
		RetryableStatuses: []int{429, 500, 502, 503, 504},
		Label:             "database",
	}
}

func newPack(t *testing.T, provider *database.MemoryProvider, v *vault.Vault) *packWrap {
	t.Helper()
	p, err := database.New(provider, v,
		database.WithRetryPolicy(fastPolicy()),
		database.WithReadiness(time.Millisecond, time.Second),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &packWrap{t: t, tools: p.Tools}
}

type packWrap struct {
	t     *testing.T
	tools []tool.Tool
}

func (p *packWrap) execute(name, input string) (map[string]any, error) {
	p.t.Helper()
	for _, tl := range p.tools {
		if tl.Name() != name {
			continue
		}
		result, err := tl.Execute(context.Background(), json.RawMessage(input))
		if err != nil {
			return nil, err
		}
		var out map[string]any
		if err := json.Unmarshal(result.Output, &out); err != nil {
			p.t.Fatalf("output of %s is not an object: %v", name, err)
		}
		return out, nil
	}
	p.t.Fatalf("tool %s not in pack", name)
	return nil, nil
}

func TestDatabaseCreate_WaitsForReady(t *testing.T) {
	t.Parallel()

	provider := database.NewMemoryProvider()
	provider.ReadyAfter = 2
	v, err := vault.New()
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}
	p := newPack(t, provider, v)

	out, err := p.execute("database_create", `{"name":"app-db"}`)
	if err != nil {
		t.Fatalf("database_create error = %v", err)
	}
	if out["status"] != "ready" {
		t.Errorf("status = %v, want ready", out["status"])
	}
	if out["name"] != "app-db" {
		t.Errorf("name = %v, want app-db", out["name"])
	}
	if out["region"] != "us-east-1" {
		t.Errorf("region = %v, want the default region", out["region"])
	}
}

func TestSQLRun_NotReadyIsConflict(t *testing.T) {
	t.Parallel()

	provider := database.NewMemoryProvider()
	provider.ReadyAfter = 1000
	v, err := vault.New()
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}
	p := newPack(t, provider, v)

	db, err := provider.CreateDatabase(context.Background(), "cold", "us-east-1")
	if err != nil {
		t.Fatalf("CreateDatabase() error = %v", err)
	}

	_, err = p.execute("sql_run", `{"database_id":"`+db.ID+`","query":"select 1"}`)
	if err == nil {
		t.Fatal("sql_run against a creating database should fail")
	}
	code, ok := resilience.Status(err)
	if !ok || code != 409 {
		t.Errorf("Status(err) = (%d, %v), want 409", code, ok)
	}
}

func TestConnectionString_StoresDSNInVault(t *testing.T) {
	t.Parallel()

	provider := database.NewMemoryProvider()
	v, err := vault.New()
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}
	p := newPack(t, provider, v)

	db, err := provider.CreateDatabase(context.Background(), "app-db", "us-east-1")
	if err != nil {
		t.Fatalf("CreateDatabase() error = %v", err)
	}

	out, err := p.execute("connection_string", `{"database_id":"`+db.ID+`"}`)
	if err != nil {
		t.Fatalf("connection_string error = %v", err)
	}
	if out["secret_key"] != "database_url" {
		t.Errorf("secret_key = %v, want database_url", out["secret_key"])
	}
	if out["reference"] != "{{secrets.database_url}}" {
		t.Errorf("reference = %v", out["reference"])
	}

	// The DSN never appears in the tool output.
	raw, _ := json.Marshal(out)
	if strings.Contains(string(raw), "postgres://") {
		t.Error("tool output leaks the connection string")
	}

	dsn, ok, err := v.Retrieve("database_url")
	if err != nil || !ok {
		t.Fatalf("Retrieve() = (%v, %v), want the stored DSN", ok, err)
	}
	if !strings.HasPrefix(dsn, "postgres://") {
		t.Errorf("stored DSN = %q", dsn)
	}
}

func TestDatabaseCreate_TransientCreateErrorsRetried(t *testing.T) {
	t.Parallel()

	provider := database.NewMemoryProvider()
	v, err := vault.New()
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}

	flaky := &flakyProvider{MemoryProvider: provider, failures: 2}
	p, err := database.New(flaky, v,
		database.WithRetryPolicy(fastPolicy()),
		database.WithReadiness(time.Millisecond, time.Second),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	wrap := &packWrap{t: t, tools: p.Tools}

	out, err := wrap.execute("database_create", `{"name":"app-db"}`)
	if err != nil {
		t.Fatalf("database_create error = %v", err)
	}
	if out["status"] != "ready" {
		t.Errorf("status = %v, want ready after retries", out["status"])
	}
	if flaky.calls != 3 {
		t.Errorf("CreateDatabase calls = %d, want 3", flaky.calls)
	}
}

// flakyProvider fails CreateDatabase with a retryable status a fixed number
// of times before delegating.
type flakyProvider struct {
	*database.MemoryProvider
	failures int
	calls    int
}

func (f *flakyProvider) CreateDatabase(ctx context.Context, name, region string) (*database.Database, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, resilience.NewStatusError(503, "control plane busy")
	}
	return f.MemoryProvider.CreateDatabase(ctx, name, region)
}
