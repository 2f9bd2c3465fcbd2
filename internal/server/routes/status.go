package routes

import (
	"context"
	"sort"

	"github.com/gofiber/fiber/v3"

	"github.com/page-vault/page-vault/internal/cache"
	"github.com/page-vault/page-vault/internal/version"
)

// StatusOptions 描述诊断接口需要的只读依赖。
type StatusOptions struct {
	Store           cache.Store
	SiteName        string
	StaticNamespace string
	APINamespace    string
}

// RegisterStatusRoutes 暴露 /-/status 诊断接口，供运维查询缓存命名空间状态。
func RegisterStatusRoutes(app *fiber.App, opts StatusOptions) {
	if app == nil || opts.Store == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		names, err := opts.Store.List(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "store_list_failed"})
		}
		sort.Strings(names)

		payload := fiber.Map{
			"version": version.Full(),
			"site":    opts.SiteName,
			"current": fiber.Map{
				"static": opts.StaticNamespace,
				"api":    opts.APINamespace,
			},
			"namespaces": encodeNamespaces(ctx, opts, names),
		}
		return c.JSON(payload)
	})
}

type namespacePayload struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Stale   bool   `json:"stale"`
}

func encodeNamespaces(ctx context.Context, opts StatusOptions, names []string) []namespacePayload {
	result := make([]namespacePayload, 0, len(names))
	for _, name := range names {
		payload := namespacePayload{
			Name:  name,
			Stale: name != opts.StaticNamespace && name != opts.APINamespace,
		}
		if ns, err := opts.Store.Namespace(name); err == nil {
			if keys, err := ns.Keys(ctx); err == nil {
				payload.Entries = len(keys)
			}
		}
		result = append(result, payload)
	}
	return result
}
