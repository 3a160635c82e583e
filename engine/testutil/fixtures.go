package testutil

import (
	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
)

// SampleRequest is the "hello" text filed under the "notes" category.
func SampleRequest() models.AssociateRequest {
	return models.AssociateRequest{
		Content:     []byte("hello"),
		Extension:   "txt",
		Category:    digest.LabelKey("notes"),
		DisplayName: "hello world",
	}
}

// SampleMeta returns fully populated submitter metadata.
func SampleMeta() models.Meta {
	return models.Meta{
		User:        "alice",
		Title:       "Greeting",
		Description: "A short greeting",
		URL:         "https://example.com/hello",
	}
}
