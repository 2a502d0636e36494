package clienttools

import "encoding/json"

var (
	metaOpenMatchProfile = meta{
		name:        OpenMatchProfile,
		description: "Open the profile screen of a suggested match.",
		schema: json.RawMessage(`{"type":"object","properties":{"match_user_id":{"type":"string"}},` +
			`"required":["match_user_id"]}`),
	}

	metaOpenP2PChat = meta{
		name:        OpenP2PChat,
		description: "Open the direct chat with a match.",
		schema: json.RawMessage(`{"type":"object","properties":{"match_user_id":{"type":"string"}},` +
			`"required":["match_user_id"]}`),
	}

	metaShowMatchesWidget = meta{
		name:        ShowMatchesWidget,
		description: "Display a list of match cards above the conversation.",
		schema: json.RawMessage(`{"type":"object","properties":{"headline":{"type":"string"},` +
			`"matches":{"type":"array","items":{"type":"object","properties":{` +
			`"user_id":{"type":"string"},"match_user_id":{"type":"string"},"name":{"type":"string"},` +
			`"age":{"type":"integer"},"city":{"type":"string"},"score":{"type":"number"},` +
			`"match_reason":{"type":"string"},"tagline":{"type":"string"},` +
			`"overlap_interests":{"type":"array","items":{"type":"string"}}}}}},"required":["matches"]}`),
	}

	metaShowProfileBuilderOptions = meta{
		name:        ShowProfileBuilderOptions,
		description: "Ask a multiple-choice profile question; the chosen label comes back as a user message.",
		schema: json.RawMessage(`{"type":"object","properties":{"question_id":{"type":"string"},` +
			`"prompt":{"type":"string"},"allow_multiple":{"type":"boolean"},` +
			`"options":{"type":"array","items":{"type":"object","properties":{"id":{"type":"string"},` +
			`"label":{"type":"string"},"value":{"type":"string"}},"required":["label"]}}},` +
			`"required":["prompt","options"]}`),
	}

	metaUpdateProfileProgress = meta{
		name:        UpdateProfileProgress,
		description: "Acknowledge onboarding progress.",
		schema:      json.RawMessage(`{"type":"object"}`),
	}

	metaSaveProfileSection = meta{
		name:        SaveProfileSection,
		description: "Save profile attributes for the signed-in user. Omitted attributes are kept.",
		identity:    true,
		schema: json.RawMessage(`{"type":"object","properties":{"attributes":{"type":"object","properties":{` +
			`"name":{"type":"string"},"age":{"type":"integer"},"age_range":{"type":"string"},` +
			`"city":{"type":"string"},"area":{"type":"string"},"gender":{"type":"string"},` +
			`"occupation":{"type":"string"},"interests":{"type":"array","items":{"type":"string"}},` +
			`"personality_traits":{"type":"array","items":{"type":"string"}},` +
			`"looking_for":{"type":"array","items":{"type":"string"}},` +
			`"meeting_preferences":{"type":"string"},` +
			`"dealbreakers":{"type":"array","items":{"type":"string"}},` +
			`"tagline":{"type":"string"}}}},"required":["attributes"]}`),
	}

	metaGetUserProfile = meta{
		name:        GetUserProfile,
		description: "Fetch the signed-in user's profile. The profile is null before onboarding.",
		identity:    true,
		schema:      json.RawMessage(`{"type":"object"}`),
	}

	metaTriggerMatching = meta{
		name:        TriggerMatching,
		description: "Recompute matches for the signed-in user.",
		identity:    true,
		schema:      json.RawMessage(`{"type":"object"}`),
	}

	metaGetMatches = meta{
		name:        GetMatches,
		description: "List the signed-in user's best matches.",
		identity:    true,
		schema: json.RawMessage(`{"type":"object","properties":{"limit":{"type":"integer","minimum":1,"maximum":50}}}`),
	}
)
