// Package builtin registers the baseline capabilities shipped with the
// engine. They are ordinary example payloads; nothing in the core depends
// on them.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

// Options configures builtin registration.
type Options struct {
	// AllowFetch enables the http_get capability. Off by default since it
	// lets callers reach arbitrary URLs through the invocation's fetcher.
	AllowFetch bool
}

// Register builds and registers the builtin capabilities.
func Register(reg *capability.Registry, opts Options) error {
	if reg == nil {
		return errors.New("capability registry is required")
	}

	defs := []func() (*capability.Definition, error){
		echoCapability,
		nowCapability,
		randomIDCapability,
		cacheGetCapability,
		cacheSetCapability,
	}
	if opts.AllowFetch {
		defs = append(defs, httpGetCapability)
	}

	for _, build := range defs {
		def, err := build()
		if err != nil {
			return fmt.Errorf("failed to build builtin capability: %w", err)
		}
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("failed to register capability %s: %w", def.Name(), err)
		}
	}
	return nil
}

func echoCapability() (*capability.Definition, error) {
	schema, err := capability.ObjectSchema(
		capability.Param{Name: "message", Type: "string", Description: "Message to echo back", Required: true},
	)
	if err != nil {
		return nil, err
	}

	return capability.New[map[string]interface{}, interface{}]("echo").
		Describe("Echoes the given message back to the caller.").
		Tag("core", "debug").
		Input(schema).
		Execute(func(ctx context.Context, in map[string]interface{}, inv *capability.Invocation) (interface{}, error) {
			return in["message"], nil
		}).
		Build()
}

func nowCapability() (*capability.Definition, error) {
	schema, err := capability.ObjectSchema(
		capability.Param{Name: "format", Type: "string", Description: "Go time layout, defaults to RFC 3339"},
	)
	if err != nil {
		return nil, err
	}

	return capability.New[map[string]interface{}, string]("now").
		Describe("Returns the current time, optionally in a custom layout.").
		Tag("core", "time").
		Input(schema).
		Execute(func(ctx context.Context, in map[string]interface{}, inv *capability.Invocation) (string, error) {
			layout := time.RFC3339
			if format, ok := in["format"].(string); ok && format != "" {
				layout = format
			}
			return time.Now().UTC().Format(layout), nil
		}).
		Build()
}

func randomIDCapability() (*capability.Definition, error) {
	schema, err := capability.ObjectSchema(
		capability.Param{Name: "kind", Type: "string", Description: "Identifier kind: uuid or nanoid", Default: "uuid"},
	)
	if err != nil {
		return nil, err
	}

	return capability.New[map[string]interface{}, string]("random_id").
		Describe("Generates a random identifier (uuid or nanoid).").
		Tag("core", "id").
		Input(schema).
		Execute(func(ctx context.Context, in map[string]interface{}, inv *capability.Invocation) (string, error) {
			kind, _ := in["kind"].(string)
			switch kind {
			case "", "uuid":
				return uuid.NewString(), nil
			case "nanoid":
				return gonanoid.New()
			default:
				return "", fmt.Errorf("unknown identifier kind: %s", kind)
			}
		}).
		Build()
}

func cacheGetCapability() (*capability.Definition, error) {
	schema, err := capability.ObjectSchema(
		capability.Param{Name: "key", Type: "string", Description: "Cache key", Required: true},
	)
	if err != nil {
		return nil, err
	}

	return capability.New[map[string]interface{}, interface{}]("cache_get").
		Describe("Reads a value from the invocation context's cache.").
		Tag("core", "cache").
		Input(schema).
		Execute(func(ctx context.Context, in map[string]interface{}, inv *capability.Invocation) (interface{}, error) {
			value, ok := inv.Cache.Get(in["key"].(string))
			return map[string]interface{}{"value": value, "found": ok}, nil
		}).
		Build()
}

func cacheSetCapability() (*capability.Definition, error) {
	schema, err := capability.ObjectSchema(
		capability.Param{Name: "key", Type: "string", Description: "Cache key", Required: true},
		capability.Param{Name: "value", Type: "string", Description: "Value to store", Required: true},
	)
	if err != nil {
		return nil, err
	}

	return capability.New[map[string]interface{}, interface{}]("cache_set").
		Describe("Writes a value into the invocation context's cache.").
		Tag("core", "cache").
		Input(schema).
		Execute(func(ctx context.Context, in map[string]interface{}, inv *capability.Invocation) (interface{}, error) {
			inv.Cache.Set(in["key"].(string), in["value"])
			return map[string]interface{}{"stored": true}, nil
		}).
		Build()
}

func httpGetCapability() (*capability.Definition, error) {
	schema, err := capability.ObjectSchema(
		capability.Param{Name: "url", Type: "string", Description: "URL to fetch", Required: true},
	)
	if err != nil {
		return nil, err
	}

	return capability.New[map[string]interface{}, interface{}]("http_get").
		Describe("Fetches a URL through the invocation's fetch primitive. Caches responses by URL for the lifetime of the context.").
		Tag("core", "web").
		RestrictOrigin().
		Input(schema).
		Execute(func(ctx context.Context, in map[string]interface{}, inv *capability.Invocation) (interface{}, error) {
			url := in["url"].(string)

			cacheKey := "http_get:" + url
			if cached, ok := inv.Cache.Get(cacheKey); ok {
				return cached, nil
			}

			resp, err := inv.Fetch.Fetch(ctx, capability.FetchRequest{URL: url})
			if err != nil {
				return nil, fmt.Errorf("fetch failed: %w", err)
			}

			result := map[string]interface{}{
				"status": resp.StatusCode,
				"body":   string(resp.Body),
			}
			inv.Cache.Set(cacheKey, result)
			return result, nil
		}).
		Build()
}
