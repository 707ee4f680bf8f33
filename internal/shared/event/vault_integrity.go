package event

const VaultIntegrityDestination string = "vault_integrity_alert"

// VaultIntegrityMessage signals that sealed credential material failed to
// open for a user. Downstream consumers should page on it.
type VaultIntegrityMessage struct {
	UserID     int64  `json:"user_id"`
	Purpose    string `json:"purpose"`
	DetectedAt string `json:"detected_at"`
}
