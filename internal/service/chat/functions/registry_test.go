package functions

import (
	"context"
	"errors"
	"testing"

	chatModels "coinsage/internal/domain/models/chat"
)

func TestNewRegistry_LoadsEmbeddedSchemas(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	// Schemas are only advertised once an implementation is registered.
	if got := registry.Schemas(); len(got) != 0 {
		t.Errorf("expected no advertised schemas before registration, got %d", len(got))
	}

	registry.Register("get_coin_metrics_by_id", func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
		return nil, nil
	})

	schemas := registry.Schemas()
	if len(schemas) != 1 {
		t.Fatalf("expected 1 schema, got %d", len(schemas))
	}
	if schemas[0].Name != "get_coin_metrics_by_id" {
		t.Errorf("unexpected schema name %q", schemas[0].Name)
	}
	if schemas[0].Description == "" {
		t.Error("embedded schema should carry a description")
	}
	params, ok := schemas[0].Parameters["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("parameters.properties missing: %v", schemas[0].Parameters)
	}
	if _, ok := params["coin_id"]; !ok {
		t.Error("coin_id property missing from embedded schema")
	}
}

func TestRegistry_CustomFunctionGetsGeneratedSchema(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	registry.Register("get_weather", func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
		return "sunny", nil
	})

	schemas := registry.Schemas()
	if len(schemas) != 1 || schemas[0].Name != "get_weather" {
		t.Fatalf("expected generated schema for get_weather, got %v", schemas)
	}
}

func TestRegistry_Execute(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		registry.Register("echo", func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			return args["value"], nil
		})

		result := registry.Execute(ctx, &chatModels.FunctionCall{
			Name:      "echo",
			Arguments: map[string]interface{}{"value": "hello"},
		})

		if result.Status != chatModels.StatusSuccess {
			t.Fatalf("expected success, got %s (%v)", result.Status, result.Result)
		}
		if result.Result != "hello" {
			t.Errorf("result = %v", result.Result)
		}
		if result.FunctionName != "echo" {
			t.Errorf("function_name = %s", result.FunctionName)
		}
	})

	t.Run("execution failure becomes error result", func(t *testing.T) {
		registry.Register("broken", func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
			return nil, errors.New("upstream API unreachable")
		})

		result := registry.Execute(ctx, &chatModels.FunctionCall{Name: "broken"})

		if result.Status != chatModels.StatusError {
			t.Fatalf("expected error status, got %s", result.Status)
		}
		if result.Result != "Error: upstream API unreachable" {
			t.Errorf("result = %v", result.Result)
		}
	})

	t.Run("unknown function becomes error result", func(t *testing.T) {
		result := registry.Execute(ctx, &chatModels.FunctionCall{Name: "get_price"})

		if result.Status != chatModels.StatusError {
			t.Fatalf("expected error status, got %s", result.Status)
		}
	})
}
