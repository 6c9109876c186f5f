package types

import "fmt"

// User is the account owner record. Unlike the other entities its primary
// key is the remote-assigned integer id; there is no separate local uid.
type User struct {
	ID       int32   `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
	Timezone *string `json:"timezone,omitempty"`

	Privilege *int32 `json:"privilege,omitempty"`

	CreationTimestamp     *Timestamp `json:"creation_timestamp,omitempty"`
	ModificationTimestamp *Timestamp `json:"modification_timestamp,omitempty"`
	DeletionTimestamp     *Timestamp `json:"deletion_timestamp,omitempty"`

	Active bool `json:"active"`

	Attributes       *UserAttributes   `json:"attributes,omitempty"`
	Accounting       *Accounting       `json:"accounting,omitempty"`
	PremiumInfo      *PremiumInfo      `json:"premium_info,omitempty"`
	BusinessUserInfo *BusinessUserInfo `json:"business_user_info,omitempty"`

	Dirty bool `json:"dirty,omitempty"`
	Local bool `json:"local,omitempty"`
}

// UserAttributes is the optional per-user preference record.
type UserAttributes struct {
	DefaultLocationName *string  `json:"default_location_name,omitempty"`
	DefaultLatitude     *float64 `json:"default_latitude,omitempty"`
	DefaultLongitude    *float64 `json:"default_longitude,omitempty"`

	Preactivation        *bool   `json:"preactivation,omitempty"`
	IncomingEmailAddress *string `json:"incoming_email_address,omitempty"`
	Comments             *string `json:"comments,omitempty"`

	DateAgreedToTermsOfService *Timestamp `json:"date_agreed_to_terms_of_service,omitempty"`
	MaxReferrals               *int32     `json:"max_referrals,omitempty"`
	ReferralCount              *int32     `json:"referral_count,omitempty"`
	RefererCode                *string    `json:"referer_code,omitempty"`
	SentEmailDate              *Timestamp `json:"sent_email_date,omitempty"`
}

// Accounting is the optional billing record of a user.
type Accounting struct {
	UploadLimit          *int64     `json:"upload_limit,omitempty"`
	UploadLimitEnd       *Timestamp `json:"upload_limit_end,omitempty"`
	UploadLimitNextMonth *int64     `json:"upload_limit_next_month,omitempty"`

	PremiumServiceStatus *int32     `json:"premium_service_status,omitempty"`
	PremiumOrderNumber   *string    `json:"premium_order_number,omitempty"`
	PremiumServiceStart  *Timestamp `json:"premium_service_start,omitempty"`
	PremiumServiceSKU    *string    `json:"premium_service_sku,omitempty"`

	LastSuccessfulCharge   *Timestamp `json:"last_successful_charge,omitempty"`
	LastFailedCharge       *Timestamp `json:"last_failed_charge,omitempty"`
	LastFailedChargeReason *string    `json:"last_failed_charge_reason,omitempty"`
	NextPaymentDue         *Timestamp `json:"next_payment_due,omitempty"`
	PremiumLockUntil       *Timestamp `json:"premium_lock_until,omitempty"`

	Updated *Timestamp `json:"updated,omitempty"`
}

// PremiumInfo is the optional premium-subscription record of a user.
type PremiumInfo struct {
	CurrentTime                *Timestamp `json:"current_time,omitempty"`
	Premium                    *bool      `json:"premium,omitempty"`
	PremiumRecurring           *bool      `json:"premium_recurring,omitempty"`
	PremiumExpirationDate      *Timestamp `json:"premium_expiration_date,omitempty"`
	PremiumExtendable          *bool      `json:"premium_extendable,omitempty"`
	PremiumPending             *bool      `json:"premium_pending,omitempty"`
	PremiumCancellationPending *bool      `json:"premium_cancellation_pending,omitempty"`
	CanPurchaseUploadAllowance *bool      `json:"can_purchase_upload_allowance,omitempty"`
	SponsoredGroupName         *string    `json:"sponsored_group_name,omitempty"`
}

// BusinessUserInfo is the optional business-membership record of a user.
type BusinessUserInfo struct {
	BusinessID   *int32  `json:"business_id,omitempty"`
	BusinessName *string `json:"business_name,omitempty"`
	Role         *int32  `json:"role,omitempty"`
	Email        *string `json:"email,omitempty"`
}

// CheckParameters validates the user before persistence.
func (u *User) CheckParameters() error {
	if u.ID <= 0 {
		return fmt.Errorf("user: id is required and must be positive")
	}
	if u.Username == "" {
		return fmt.Errorf("user: username is required")
	}
	if len(u.Username) > maxNameLen {
		return fmt.Errorf("user: username must be %d characters or less", maxNameLen)
	}
	return nil
}
