package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Profile storage.
const (
	UserNameKey        = "userName"
	DefaultDisplayName = "Пользователь"
	maxDisplayName     = 64
)

// ErrInvalidName is returned for blank or oversized display names.
var ErrInvalidName = errors.New("display name must be 1-64 characters")

// Profiles stores the candidate's display name.
type Profiles struct {
	kv KV
}

// NewProfiles creates a display-name accessor over kv.
func NewProfiles(kv KV) *Profiles {
	return &Profiles{kv: kv}
}

// DisplayName returns the stored name or DefaultDisplayName.
func (p *Profiles) DisplayName(ctx context.Context, owner string) (string, error) {
	data, err := p.kv.GetValue(ctx, owner, UserNameKey)
	if err != nil {
		return "", fmt.Errorf("read display name: %w", err)
	}
	var name string
	if len(data) == 0 || json.Unmarshal(data, &name) != nil || name == "" {
		return DefaultDisplayName, nil
	}
	return name, nil
}

// SetDisplayName stores name after trimming surrounding whitespace.
func (p *Profiles) SetDisplayName(ctx context.Context, owner, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxDisplayName {
		return "", ErrInvalidName
	}
	data, err := json.Marshal(name)
	if err != nil {
		return "", fmt.Errorf("encode display name: %w", err)
	}
	if err := p.kv.PutValue(ctx, owner, UserNameKey, data); err != nil {
		return "", fmt.Errorf("persist display name: %w", err)
	}
	return name, nil
}
