package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Save(key string, v any)
	Load(key string) (any, bool)
}

// RegisterSteps registers verification, registry and disclosure steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	ctx.Step(`^I verify (gleif|corpreg|exim) entities "([^"]*)"$`, steps.verifyEntities)
	ctx.Step(`^entity (\d+) should be compliant$`, steps.entityShouldBeCompliant)
	ctx.Step(`^entity (\d+) should not be compliant$`, steps.entityShouldNotBeCompliant)
	ctx.Step(`^entity (\d+) should fail with category "([^"]*)"$`, steps.entityShouldFailWith)
	ctx.Step(`^I fetch the witness for entity (\d+)$`, steps.fetchWitness)
	ctx.Step(`^I request a disclosure of "([^"]*)" for (gleif|corpreg|exim) entity "([^"]*)"$`, steps.requestDisclosure)
	ctx.Step(`^I submit the disclosure for checking$`, steps.submitDisclosure)
	ctx.Step(`^I submit the disclosure with "([^"]*)" changed to "([^"]*)"$`, steps.submitTamperedDisclosure)
}

type verificationSteps struct {
	tc TestContext
}

func (s *verificationSteps) verifyEntities(ctx context.Context, entityType, identifiers string) error {
	var ids []string
	for _, id := range strings.Split(identifiers, ",") {
		ids = append(ids, strings.TrimSpace(id))
	}
	if err := s.tc.POST("/v1/verifications", map[string]any{
		"entity_type": entityType,
		"identifiers": ids,
	}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("verification returned %d: %s", status, s.tc.GetLastResponseBody())
	}
	s.tc.Save("batch", json.RawMessage(s.tc.GetLastResponseBody()))
	return nil
}

func (s *verificationSteps) result(n int, field string) (any, error) {
	return s.tc.GetResponseField(fmt.Sprintf("verification_results.%d.%s", n-1, field))
}

func (s *verificationSteps) entityShouldBeCompliant(ctx context.Context, n int) error {
	return s.expectCompliance(n, true)
}

func (s *verificationSteps) entityShouldNotBeCompliant(ctx context.Context, n int) error {
	return s.expectCompliance(n, false)
}

func (s *verificationSteps) expectCompliance(n int, want bool) error {
	v, err := s.result(n, "is_compliant")
	if err != nil {
		return err
	}
	if got, ok := v.(bool); !ok || got != want {
		return fmt.Errorf("expected entity %d is_compliant=%t, got %v", n, want, v)
	}
	return nil
}

func (s *verificationSteps) entityShouldFailWith(ctx context.Context, n int, category string) error {
	v, err := s.result(n, "error_category")
	if err != nil {
		return err
	}
	if v != category {
		return fmt.Errorf("expected entity %d to fail with %s, got %v", n, category, v)
	}
	return nil
}

func (s *verificationSteps) fetchWitness(ctx context.Context, n int) error {
	id, err := s.result(n, "identity")
	if err != nil {
		return err
	}
	identity, ok := id.(string)
	if !ok {
		return fmt.Errorf("entity %d has no identity", n)
	}
	return s.tc.GET("/v1/registry/entities/"+url.PathEscape(identity)+"/witness", nil)
}

func (s *verificationSteps) requestDisclosure(ctx context.Context, fieldList, entityType, identifier string) error {
	var names []string
	for _, f := range strings.Split(fieldList, ",") {
		names = append(names, strings.TrimSpace(f))
	}
	if err := s.tc.POST("/v1/disclosures", map[string]any{
		"entity_type": entityType,
		"identifier":  identifier,
		"fields":      names,
	}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("disclosure returned %d: %s", status, s.tc.GetLastResponseBody())
	}
	var disclosure map[string]any
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &disclosure); err != nil {
		return err
	}
	s.tc.Save("disclosure", disclosure)
	return nil
}

func (s *verificationSteps) savedDisclosure() (map[string]any, error) {
	v, ok := s.tc.Load("disclosure")
	if !ok {
		return nil, fmt.Errorf("no disclosure requested in this scenario")
	}
	return v.(map[string]any), nil
}

func (s *verificationSteps) submitDisclosure(ctx context.Context) error {
	d, err := s.savedDisclosure()
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/disclosures/verify", d)
}

func (s *verificationSteps) submitTamperedDisclosure(ctx context.Context, name, value string) error {
	d, err := s.savedDisclosure()
	if err != nil {
		return err
	}
	fields, _ := d["fields"].([]any)
	changed := false
	for _, f := range fields {
		field, ok := f.(map[string]any)
		if ok && field["name"] == name {
			field["value"] = value
			changed = true
		}
	}
	if !changed {
		return fmt.Errorf("disclosure has no field %q", name)
	}
	return s.tc.POST("/v1/disclosures/verify", d)
}
