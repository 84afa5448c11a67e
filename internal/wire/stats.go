package wire

// MessageStats are the per-session anti-ban counters.
type MessageStats struct {
	MessagesSent     int    `json:"messagesSent"`
	MessagesReceived int    `json:"messagesReceived"`
	NewContacts      int    `json:"newContacts"`
	LastMessageTime  string `json:"lastMessageTime,omitempty"`
	DailyLimit       int    `json:"dailyLimit"`
	ContactLimit     int    `json:"contactLimit"`
	LimitResetTime   string `json:"limitResetTime"`
}

// UserGuidance is the backend's advice for an operator.
type UserGuidance struct {
	Level           string   `json:"level"`
	Title           string   `json:"title"`
	Message         string   `json:"message"`
	Recommendations []string `json:"recommendations"`
	CanSendMessages bool     `json:"canSendMessages"`
	NextAction      string   `json:"nextAction,omitempty"`
}

// SuspiciousEvent is one anti-ban detection recorded by the backend.
type SuspiciousEvent struct {
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
}

// SessionHealth is the backend's risk assessment for a session.
type SessionHealth struct {
	SessionID        string            `json:"sessionId"`
	Status           string            `json:"status"`
	LastActivity     string            `json:"lastActivity"`
	WarningCount     int               `json:"warningCount"`
	BanDetected      bool              `json:"banDetected"`
	LastWarning      string            `json:"lastWarning,omitempty"`
	LastBan          string            `json:"lastBan,omitempty"`
	SuspiciousEvents []SuspiciousEvent `json:"suspiciousEvents"`
	AutoStopped      bool              `json:"autoStopped"`
	UserGuidance     *UserGuidance     `json:"userGuidance,omitempty"`
	RiskLevel        string            `json:"riskLevel"`
	ProtectionActive *bool             `json:"protectionActive,omitempty"`
}

// QueueCounts are per-session queue totals.
type QueueCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// AntiBanStatus is the optional protection summary attached to stats.
type AntiBanStatus struct {
	Enabled          bool   `json:"enabled"`
	WarningsDetected int    `json:"warningsDetected"`
	LastWarningTime  string `json:"lastWarningTime,omitempty"`
	HealthScore      int    `json:"healthScore"`
}

// SessionStats is GET /sessions/{id}/stats.
type SessionStats struct {
	SessionID     string         `json:"sessionId"`
	Status        string         `json:"status"`
	MessageStats  *MessageStats  `json:"messageStats,omitempty"`
	QueueStats    *QueueCounts   `json:"queueStats,omitempty"`
	SessionHealth *SessionHealth `json:"sessionHealth,omitempty"`
	AntiBanStatus *AntiBanStatus `json:"antiBanStatus,omitempty"`
}
