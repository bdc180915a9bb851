// Package contract holds reusable conformance checks for data source
// providers.
package contract

import (
	"context"
	"fmt"
	"testing"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
)

// ContractTest defines a test case for provider contract validation
type ContractTest struct {
	Name          string
	Provider      providers.Provider
	Identifier    string
	ExpectedType  models.EntityType
	RequiredPaths []string
	ValidateFunc  func(rec *providers.RawEntityRecord) error
}

// ContractSuite is a collection of contract tests for a provider
type ContractSuite struct {
	ProviderID string
	Tests      []ContractTest
}

// Run executes all contract tests in the suite
func (s *ContractSuite) Run(t *testing.T) {
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			ctx := context.Background()

			rec, err := test.Provider.Lookup(ctx, test.Identifier)
			if err != nil {
				t.Fatalf("provider lookup failed: %v", err)
			}

			if rec.Source != s.ProviderID {
				t.Errorf("expected source %s, got %s", s.ProviderID, rec.Source)
			}
			if rec.EntityType != test.ExpectedType {
				t.Errorf("expected type %s, got %s", test.ExpectedType, rec.EntityType)
			}
			if rec.FetchedAt.IsZero() {
				t.Error("FetchedAt not set")
			}
			for _, path := range test.RequiredPaths {
				if _, ok := fields.Lookup(rec.Values, path); !ok {
					t.Errorf("required path %q missing", path)
				}
			}

			// the record must encode cleanly under the entity type's schema
			if err := encodes(ctx, rec); err != nil {
				t.Errorf("record does not encode: %v", err)
			}

			if test.ValidateFunc != nil {
				if err := test.ValidateFunc(rec); err != nil {
					t.Errorf("custom validation failed: %v", err)
				}
			}
		})
	}
}

type failOnFallback struct {
	err error
}

func (f *failOnFallback) EncodingFallback(_ context.Context, fb fields.Fallback) {
	if f.err == nil {
		f.err = fmt.Errorf("slot %s fell back: %w", fb.SlotName, fb.Err)
	}
}

func encodes(ctx context.Context, rec *providers.RawEntityRecord) error {
	schema, err := models.SchemaFor(rec.EntityType)
	if err != nil {
		return err
	}
	rep := &failOnFallback{}
	f, err := fields.NewEncoder(fields.WithReporter(rep)).Encode(ctx, schema, rec.Values)
	if err != nil {
		return err
	}
	if rep.err != nil {
		return rep.err
	}
	_, err = fields.BuildTree(f)
	return err
}

// CapabilityTest validates that provider capabilities are correctly declared
type CapabilityTest struct {
	Provider providers.Provider
}

// Run executes a capability test
func (ct *CapabilityTest) Run(t *testing.T) {
	caps := ct.Provider.Capabilities()

	if caps.Protocol == "" {
		t.Error("protocol not set")
	}
	if _, err := models.SchemaFor(caps.EntityType); err != nil {
		t.Errorf("entity type: %v", err)
	}
	if caps.Version == "" {
		t.Error("version not set")
	}
	if len(caps.Fields) == 0 {
		t.Error("no field capabilities declared")
	}
	if len(caps.Filters) == 0 {
		t.Error("no filters declared")
	}
}

// ErrorContractTest validates that provider errors follow the taxonomy
type ErrorContractTest struct {
	Name          string
	Provider      providers.Provider
	Identifier    string
	ExpectedError providers.ErrorCategory
	ExpectedRetry bool
}

// Run executes an error contract test
func (ect *ErrorContractTest) Run(t *testing.T) {
	t.Run(ect.Name, func(t *testing.T) {
		_, err := ect.Provider.Lookup(context.Background(), ect.Identifier)
		if err == nil {
			t.Fatal("expected error but got none")
		}

		if category := providers.GetCategory(err); category != ect.ExpectedError {
			t.Errorf("expected error category %s, got %s", ect.ExpectedError, category)
		}
		if isRetryable := providers.IsRetryable(err); isRetryable != ect.ExpectedRetry {
			t.Errorf("expected retryable=%v, got %v", ect.ExpectedRetry, isRetryable)
		}
	})
}
