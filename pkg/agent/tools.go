// Package agent exports registered capabilities as provider tool
// definitions, so a model can plan calls against the same registry the
// engine executes.
package agent

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// emptyObjectSchema is used for capabilities registered without an input
// schema; providers reject tools with no parameter document.
func emptyObjectSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func schemaDocument(def *capability.Definition) map[string]interface{} {
	if def.Schema() == nil {
		return emptyObjectSchema()
	}
	return def.Schema().Document()
}

// ToOpenAITools converts definitions to OpenAI function tools.
func ToOpenAITools(defs []*capability.Definition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		if def == nil {
			continue
		}
		tools = append(tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name(),
				Description: openai.String(def.Description()),
				Parameters:  openai.FunctionParameters(schemaDocument(def)),
			},
		})
	}
	return tools
}

// ToAnthropicTools converts definitions to Anthropic tool params.
func ToAnthropicTools(defs []*capability.Definition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def == nil {
			continue
		}
		doc := schemaDocument(def)

		toolParam := anthropic.ToolParam{
			Name:        def.Name(),
			Description: anthropic.String(def.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: doc["properties"],
			},
		}
		toolParam.InputSchema.Required = requiredFields(doc)

		tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return tools
}

// RegistryOpenAITools exports every registered capability, optionally
// narrowed to a tag set.
func RegistryOpenAITools(reg *capability.Registry, tags ...string) []openai.ChatCompletionToolParam {
	return ToOpenAITools(selectDefs(reg, tags))
}

// RegistryAnthropicTools exports every registered capability, optionally
// narrowed to a tag set.
func RegistryAnthropicTools(reg *capability.Registry, tags ...string) []anthropic.ToolUnionParam {
	return ToAnthropicTools(selectDefs(reg, tags))
}

// requiredFields reads the "required" list from a schema document,
// which is []string when built programmatically and []interface{} when
// decoded from JSON.
func requiredFields(doc map[string]interface{}) []string {
	switch required := doc["required"].(type) {
	case []string:
		return required
	case []interface{}:
		fields := make([]string, 0, len(required))
		for _, v := range required {
			if s, ok := v.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	default:
		return nil
	}
}

func selectDefs(reg *capability.Registry, tags []string) []*capability.Definition {
	if reg == nil {
		return nil
	}
	if len(tags) == 0 {
		return reg.List()
	}
	return reg.FindByAllTags(tags)
}
