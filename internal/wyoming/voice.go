package wyoming

// VoiceSelector identifies a requested voice by any combination of name,
// language, and speaker. An empty selector matches nothing explicitly.
type VoiceSelector struct {
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
}

func (v VoiceSelector) isZero() bool {
	return v.Name == "" && v.Language == "" && v.Speaker == ""
}

// ResolveVoice applies the resolution order from the data model: explicit
// name, then explicit language, then the persisted default, then the
// backend default. Each step returns the whole selector supplied by that
// source. The explicit selector is used only when it names a voice or a
// language (a speaker alone does not count); the persisted default is
// used when any of its fields is set.
func ResolveVoice(explicit, persistedDefault, backendDefault VoiceSelector) VoiceSelector {
	if explicit.Name != "" {
		return explicit
	}
	if explicit.Language != "" {
		return explicit
	}
	if !persistedDefault.isZero() {
		return persistedDefault
	}
	return backendDefault
}
