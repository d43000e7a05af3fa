// internal/service/template_service.go
package service

import (
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/repository"
)

// Renderer resolves @contact.<field> and @text_block.<name> placeholders in
// rendered channel content. Text blocks come from the content store and are
// cached briefly so a thousand-recipient fan-out does not refetch them per
// message.
type Renderer struct {
	Compositions repository.CompositionRepositoryInterface

	cache *gocache.Cache
}

const textBlockCacheKey = "text_blocks"

func NewRenderer(compositions repository.CompositionRepositoryInterface) *Renderer {
	return &Renderer{
		Compositions: compositions,
		cache:        gocache.New(5*time.Minute, 10*time.Minute),
	}
}

var leftoverPlaceholder = regexp.MustCompile(`@(contact|text_block)\.[A-Za-z0-9_]+`)

// Render personalizes text for one contact. Unknown placeholders are removed
// rather than left as literal tokens.
func (r *Renderer) Render(text string, contact model.Contact) (string, error) {
	fields := map[string]string{
		"first_name":   contact.FirstName,
		"last_name":    contact.LastName,
		"email":        contact.Email,
		"phone":        contact.Phone,
		"mobile_phone": contact.MobilePhone,
		"linkedin_url": contact.LinkedInURL,
	}
	for k, v := range fields {
		text = strings.ReplaceAll(text, "@contact."+k, v)
	}

	if strings.Contains(text, "@text_block.") {
		blocks, err := r.textBlocks()
		if err != nil {
			return "", err
		}
		for name, content := range blocks {
			text = strings.ReplaceAll(text, "@text_block."+name, content)
		}
	}

	return leftoverPlaceholder.ReplaceAllString(text, ""), nil
}

func (r *Renderer) textBlocks() (map[string]string, error) {
	if cached, ok := r.cache.Get(textBlockCacheKey); ok {
		return cached.(map[string]string), nil
	}
	blocks, err := r.Compositions.GetTextBlocks()
	if err != nil {
		return nil, err
	}
	r.cache.Set(textBlockCacheKey, blocks, gocache.DefaultExpiration)
	return blocks, nil
}
