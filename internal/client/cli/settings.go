package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

func (a *App) Settings(ctx context.Context) error {
	p, err := a.api.Settings(ctx)
	if err != nil {
		return a.check(ctx, err)
	}
	if p == nil {
		p = &models.Personalization{}
	}
	show := func(label string, v *string) {
		s := "(default)"
		if v != nil && *v != "" {
			s = *v
		}
		fmt.Fprintf(a.out, "%-13s %s\n", label+":", s)
	}
	show("displayName", p.DisplayName)
	show("tone", p.Tone)
	show("instructions", p.Instructions)
	show("model", p.Model)
	return nil
}

// Set changes one personalization field and keeps the others. An empty
// value resets the field, except for instructions, which are then read
// as multiple lines.
func (a *App) Set(ctx context.Context, field, value string) error {
	p, err := a.api.Settings(ctx)
	if err != nil {
		return a.check(ctx, err)
	}
	if p == nil {
		p = &models.Personalization{}
	}

	var target **string
	switch field {
	case "displayName", "name":
		target = &p.DisplayName
	case "tone":
		target = &p.Tone
	case "instructions":
		target = &p.Instructions
		if value == "" {
			value, err = GetMultiline(a.reader, "Enter instructions", a.out)
			if err != nil {
				return err
			}
		}
	case "model":
		target = &p.Model
	default:
		return fmt.Errorf("unknown field %q, use displayName, tone, instructions or model", field)
	}

	if value == "" {
		*target = nil
	} else {
		*target = &value
	}

	if _, err := a.api.PutSettings(ctx, *p); err != nil {
		return a.check(ctx, err)
	}
	fmt.Fprintln(a.out, "Saved", field)
	return nil
}
