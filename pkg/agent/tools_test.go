package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

func buildDef(t *testing.T, name string, tags ...string) *capability.Definition {
	t.Helper()

	schema, err := capability.ObjectSchema(
		capability.Param{Name: "query", Type: "string", Description: "Search query", Required: true},
		capability.Param{Name: "limit", Type: "integer", Description: "Max results"},
	)
	require.NoError(t, err)

	b := capability.New[map[string]interface{}, interface{}](name).
		Describe("Searches things").
		Input(schema).
		Execute(func(ctx context.Context, in map[string]interface{}, inv *capability.Invocation) (interface{}, error) {
			return nil, nil
		})
	for _, tag := range tags {
		b = b.Tag(tag)
	}

	def, err := b.Build()
	require.NoError(t, err)
	return def
}

func TestToOpenAITools(t *testing.T) {
	def := buildDef(t, "search")

	tools := ToOpenAITools([]*capability.Definition{def, nil})
	require.Len(t, tools, 1)

	assert.Equal(t, "search", tools[0].Function.Name)
	assert.Equal(t, "Searches things", tools[0].Function.Description.Value)

	params := map[string]interface{}(tools[0].Function.Parameters)
	assert.Equal(t, "object", params["type"])
	props, ok := params["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
}

func TestToAnthropicTools(t *testing.T) {
	def := buildDef(t, "search")

	tools := ToAnthropicTools([]*capability.Definition{def})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)

	tool := tools[0].OfTool
	assert.Equal(t, "search", tool.Name)
	assert.Equal(t, []string{"query"}, tool.InputSchema.Required)

	props, ok := tool.InputSchema.Properties.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "query")
}

func TestTools_NoSchema(t *testing.T) {
	def, err := capability.New[interface{}, interface{}]("bare").
		Execute(func(ctx context.Context, in interface{}, inv *capability.Invocation) (interface{}, error) {
			return nil, nil
		}).
		Build()
	require.NoError(t, err)

	tools := ToOpenAITools([]*capability.Definition{def})
	require.Len(t, tools, 1)
	params := map[string]interface{}(tools[0].Function.Parameters)
	assert.Equal(t, "object", params["type"])

	anthropicTools := ToAnthropicTools([]*capability.Definition{def})
	require.Len(t, anthropicTools, 1)
	assert.Empty(t, anthropicTools[0].OfTool.InputSchema.Required)
}

func TestRegistryTools_TagFilter(t *testing.T) {
	reg := capability.NewRegistry()
	require.NoError(t, reg.Register(buildDef(t, "search", "web")))
	require.NoError(t, reg.Register(buildDef(t, "lookup", "db")))

	all := RegistryOpenAITools(reg)
	assert.Len(t, all, 2)

	web := RegistryOpenAITools(reg, "web")
	require.Len(t, web, 1)
	assert.Equal(t, "search", web[0].Function.Name)

	none := RegistryAnthropicTools(reg, "web", "db")
	assert.Empty(t, none)

	assert.Nil(t, RegistryOpenAITools(nil))
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"a"}, requiredFields(map[string]interface{}{"required": []string{"a"}}))
	assert.Equal(t, []string{"a", "b"}, requiredFields(map[string]interface{}{"required": []interface{}{"a", "b"}}))
	assert.Nil(t, requiredFields(map[string]interface{}{}))
}
