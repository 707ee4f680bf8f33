package event

const TwoFactorEnabledDestination string = "two_factor_enabled"
const TwoFactorDisabledDestination string = "two_factor_disabled"

type TwoFactorChangedMessage struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	ChangedAt string `json:"changed_at"`
}
