package oauth

import "github.com/marksapp/marks/pkg/marks/models"

// Metadata is the display and protocol configuration attached to a provider
// kind: the button label, an icon slug for the frontend, and any extra query
// parameters the provider's authorization endpoint wants.
type Metadata struct {
	Label      string
	Icon       string
	AuthParams map[string]string
}

// KindMetadata maps a provider kind to its metadata. Unknown kinds fall back
// to the generic entry.
func KindMetadata(kind models.ProviderKind) Metadata {
	switch kind {
	case models.ProviderGoogle:
		return Metadata{
			Label: "Continue with Google",
			Icon:  "google",
			// Ask for a refresh token and force the consent screen
			AuthParams: map[string]string{
				"access_type": "offline",
				"prompt":      "consent",
			},
		}
	case models.ProviderGithub:
		return Metadata{
			Label: "Continue with GitHub",
			Icon:  "github",
		}
	default:
		return Metadata{
			Label: "Continue with SSO",
			Icon:  "openid",
		}
	}
}
