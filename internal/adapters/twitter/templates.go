package twitter

import "maps"

// Operation names as they appear in the request path
const (
	OpUserByScreenName    = "UserByScreenName"
	OpUserByRestID        = "UserByRestId"
	OpUserMedia           = "UserMedia"
	OpTweetResultByRestID = "TweetResultByRestId"
)

// Template is the opaque request shape of one GraphQL operation.
// Per-call variables are merged over Variables.
type Template struct {
	QueryID   string
	Variables map[string]any
	Features  map[string]any
}

// Templates holds one template per operation
type Templates map[string]Template

var sharedFeatures = map[string]any{
	"responsive_web_graphql_exclude_directive_enabled":                  true,
	"verified_phone_label_enabled":                                      false,
	"creator_subscriptions_tweet_preview_api_enabled":                   true,
	"responsive_web_graphql_timeline_navigation_enabled":                true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled": false,
	"c9s_tweet_anatomy_moderator_badge_enabled":                         true,
	"tweetypie_unmention_optimization_enabled":                          true,
	"responsive_web_edit_tweet_api_enabled":                             true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":        true,
	"view_counts_everywhere_api_enabled":                                true,
	"longform_notetweets_consumption_enabled":                           true,
	"responsive_web_twitter_article_tweet_consumption_enabled":          true,
	"tweet_awards_web_tipping_enabled":                                  false,
	"freedom_of_speech_not_reach_fetch_enabled":                         true,
	"standardized_nudges_misinfo":                                       true,
	"longform_notetweets_rich_text_read_enabled":                        true,
	"longform_notetweets_inline_media_enabled":                          true,
	"responsive_web_enhance_cards_enabled":                              false,
}

var userFeatures = map[string]any{
	"hidden_profile_likes_enabled":                                      true,
	"hidden_profile_subscriptions_enabled":                              true,
	"responsive_web_graphql_exclude_directive_enabled":                  true,
	"verified_phone_label_enabled":                                      false,
	"subscriptions_verification_info_is_identity_verified_enabled":      true,
	"subscriptions_verification_info_verified_since_enabled":            true,
	"highlights_tweets_tab_ui_enabled":                                  true,
	"creator_subscriptions_tweet_preview_api_enabled":                   true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled": false,
	"responsive_web_graphql_timeline_navigation_enabled":                true,
}

// DefaultTemplates returns the built-in templates. Query ids rotate upstream
// and can be overridden from configuration with WithQueryIDs.
func DefaultTemplates() Templates {
	return Templates{
		OpUserByScreenName: {
			QueryID:   "NimuplG1OB7Fd2btCLdBOw",
			Variables: map[string]any{"withSafetyModeUserFields": true},
			Features:  userFeatures,
		},
		OpUserByRestID: {
			QueryID:   "tD8zKvQzwY3kdx5yz6YmOw",
			Variables: map[string]any{"withSafetyModeUserFields": true},
			Features:  userFeatures,
		},
		OpUserMedia: {
			QueryID: "Le6KlbilFmSu-5VltFND-Q",
			Variables: map[string]any{
				"count":                  20,
				"includePromotedContent": false,
				"withClientEventToken":   false,
				"withBirdwatchNotes":     false,
				"withVoice":              true,
				"withV2Timeline":         true,
			},
			Features: sharedFeatures,
		},
		OpTweetResultByRestID: {
			QueryID: "5GOHgZe-8U2j5sVHQzEnUA",
			Variables: map[string]any{
				"withCommunity":          false,
				"includePromotedContent": false,
				"withVoice":              false,
			},
			Features: sharedFeatures,
		},
	}
}

// WithQueryIDs returns a copy with the given operations' query ids replaced.
// Empty values and unknown operations are ignored.
func (t Templates) WithQueryIDs(ids map[string]string) Templates {
	out := maps.Clone(t)
	for op, id := range ids {
		tmpl, ok := out[op]
		if !ok || id == "" {
			continue
		}
		tmpl.QueryID = id
		out[op] = tmpl
	}
	return out
}

// variables merges per-call values over the template defaults
func (t Template) variables(call map[string]any) map[string]any {
	merged := make(map[string]any, len(t.Variables)+len(call))
	maps.Copy(merged, t.Variables)
	maps.Copy(merged, call)
	return merged
}
