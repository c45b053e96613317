// Package secrets provides tools for managing the in-memory secret vault.
// Tool outputs never contain secret plaintext; retrieval reports presence
// and length only.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/provisionkit/provision-go/domain/pack"
	"github.com/provisionkit/provision-go/domain/tool"
	"github.com/provisionkit/provision-go/infrastructure/security/vault"
)

// New creates the secrets pack over the given vault.
func New(v *vault.Vault) (*pack.Pack, error) {
	if v == nil {
		return nil, errors.New("vault is required")
	}

	return pack.NewBuilder("secrets").
		WithDescription("In-memory secret vault operations").
		WithVersion("1.0.0").
		AddTools(
			storeTool(v),
			getTool(v),
			listTool(v),
			deleteTool(v),
			destroyTool(v),
		).
		Build(), nil
}

// storeInput is the input for the secret_store tool.
type storeInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// storeOutput is the output for the secret_store tool.
type storeOutput struct {
	Key       string `json:"key"`
	Stored    bool   `json:"stored"`
	Reference string `json:"reference"`
}

func storeTool(v *vault.Vault) tool.Tool {
	return tool.NewBuilder("secret_store").
		WithDescription("Store a secret in the vault and return its reference").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"key":   tool.String("Secret name"),
			"value": tool.String("Secret value"),
		}, []string{"key", "value"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in storeInput
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}
			if err := v.Store(in.Key, in.Value); err != nil {
				return tool.Result{}, err
			}
			return tool.MarshalResult(storeOutput{
				Key:       in.Key,
				Stored:    true,
				Reference: fmt.Sprintf("{{secrets.%s}}", in.Key),
			})
		}).
		MustBuild()
}

// getInput is the input for the secret_get tool.
type getInput struct {
	Key string `json:"key"`
}

// getOutput is the output for the secret_get tool. Only presence and
// length are reported.
type getOutput struct {
	Key     string `json:"key"`
	Present bool   `json:"present"`
	Length  int    `json:"length,omitempty"`
}

func getTool(v *vault.Vault) tool.Tool {
	return tool.NewBuilder("secret_get").
		WithDescription("Check whether a secret exists; reports presence and length, never the value").
		ReadOnly().
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"key": tool.String("Secret name"),
		}, []string{"key"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in getInput
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}
			value, ok, err := v.Retrieve(in.Key)
			if err != nil {
				return tool.Result{}, err
			}
			out := getOutput{Key: in.Key, Present: ok}
			if ok {
				out.Length = len(value)
			}
			return tool.MarshalResult(out)
		}).
		MustBuild()
}

// listOutput is the output for the secret_list tool.
type listOutput struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

func listTool(v *vault.Vault) tool.Tool {
	return tool.NewBuilder("secret_list").
		WithDescription("List the names of stored secrets").
		ReadOnly().
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			status := v.Status()
			if status.Destroyed {
				return tool.Result{}, vault.ErrVaultDestroyed
			}
			keys := v.Keys()
			return tool.MarshalResult(listOutput{Keys: keys, Count: len(keys)})
		}).
		MustBuild()
}

// deleteInput is the input for the secret_delete tool.
type deleteInput struct {
	Key string `json:"key"`
}

// deleteOutput is the output for the secret_delete tool.
type deleteOutput struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

func deleteTool(v *vault.Vault) tool.Tool {
	return tool.NewBuilder("secret_delete").
		WithDescription("Delete a secret from the vault").
		Destructive().
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"key": tool.String("Secret name"),
		}, []string{"key"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in deleteInput
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}
			existed := v.Has(in.Key)
			if err := v.Delete(in.Key); err != nil {
				return tool.Result{}, err
			}
			return tool.MarshalResult(deleteOutput{Key: in.Key, Deleted: existed})
		}).
		MustBuild()
}

// destroyOutput is the output for the vault_destroy tool.
type destroyOutput struct {
	Destroyed bool `json:"destroyed"`
}

func destroyTool(v *vault.Vault) tool.Tool {
	return tool.NewBuilder("vault_destroy").
		WithDescription("Irreversibly destroy the vault and all stored secrets").
		Destructive().
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			v.Destroy()
			return tool.MarshalResult(destroyOutput{Destroyed: true})
		}).
		MustBuild()
}
