package handlers

import (
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/assets"
	"github.com/gofiber/fiber/v2"
)

type AssetHandler struct {
	manager *assets.Manager
}

func NewAssetHandler(manager *assets.Manager) *AssetHandler {
	return &AssetHandler{manager: manager}
}

// Serve streams an image by key. Keys are content-independent UUIDs, so the
// response can be cached indefinitely.
func (h *AssetHandler) Serve(c *fiber.Ctx) error {
	body, contentType, err := h.manager.Open(c.UserContext(), c.Params("key"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	// fasthttp closes body once the response is written.
	return c.SendStream(body)
}
