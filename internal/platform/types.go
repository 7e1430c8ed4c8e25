package platform

// DashboardData is the payload the dashboard-data collaborator returns. The
// shape is assumed stable; only presence is checked.
type DashboardData struct {
	User         DashboardUser         `json:"user"`
	Usage        DashboardUsage        `json:"usage"`
	Subscription DashboardSubscription `json:"subscription"`
}

type DashboardUser struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	HasSubscription bool   `json:"has_subscription"`
}

type DashboardUsage struct {
	CharactersUsed      int64   `json:"characters_used"`
	TotalCharacters     int64   `json:"total_characters"`
	CharactersRemaining int64   `json:"characters_remaining"`
	LastGeneratedAt     *string `json:"last_generated_at"`
}

type DashboardSubscription struct {
	PlanName string `json:"plan_name"`
	Status   string `json:"status"`
}

// GenerateRequest is the payload sent to the generation collaborator.
type GenerateRequest struct {
	Text           string `json:"text"`
	Language       string `json:"language"`
	VoiceModel     string `json:"voice_model"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// CloneVoiceResponse carries the storage path the engine assigned to an
// uploaded voice sample.
type CloneVoiceResponse struct {
	Path string `json:"path"`
}

// GenerateResponse carries the audio reference returned by the engine.
type GenerateResponse struct {
	AudioID  string `json:"audio_id,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

// AudioRef returns whichever audio reference the engine populated.
func (r GenerateResponse) AudioRef() string {
	if r.AudioID != "" {
		return r.AudioID
	}
	return r.FilePath
}
