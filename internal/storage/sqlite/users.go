package sqlite

import (
	"context"
	"database/sql"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

// AddUser validates and inserts a user record.
func (s *LocalStorage) AddUser(ctx context.Context, u *types.User) error {
	if err := u.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "user", Err: err}
	}
	conn, err := s.ready()
	if err != nil {
		return err
	}
	exists, err := rowExists(ctx, conn, `SELECT 1 FROM users WHERE id = ?`, u.ID)
	if err != nil {
		return err
	}
	if exists {
		return storage.ErrConflict
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceUser(ctx, conn, u)
	})
}

// UpdateUser validates and replaces an existing user record.
func (s *LocalStorage) UpdateUser(ctx context.Context, u *types.User) error {
	if err := u.CheckParameters(); err != nil {
		return &storage.InvalidEntityError{Entity: "user", Err: err}
	}
	conn, err := s.ready()
	if err != nil {
		return err
	}
	exists, err := rowExists(ctx, conn, `SELECT 1 FROM users WHERE id = ?`, u.ID)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return s.insertOrReplaceUser(ctx, conn, u)
	})
}

// FindUser loads a user with all side records by id. The multi-table read
// runs under a selection scope.
func (s *LocalStorage) FindUser(ctx context.Context, id int32) (*types.User, error) {
	var u *types.User
	err := s.inTransaction(ctx, txSelection, func(conn *sql.Conn) error {
		var err error
		u, err = s.findUserRow(ctx, conn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *LocalStorage) findUserRow(ctx context.Context, conn *sql.Conn, id int32) (*types.User, error) {
	query := `
		SELECT id, username, email, name, timezone, privilege,
		       creation_timestamp, modification_timestamp, deletion_timestamp,
		       is_active, is_dirty, is_local
		FROM users WHERE id = ?`

	u := &types.User{}
	var (
		email, name, tz sql.NullString
		privilege       sql.NullInt64
		created, mod    sql.NullInt64
		deleted         sql.NullInt64
		active          int
		dirty, local    int
	)
	err := conn.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &email, &name, &tz, &privilege,
		&created, &mod, &deleted, &active, &dirty, &local,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.SQLError{Stmt: query, Err: err}
	}
	u.Email = strPtr(email)
	u.Name = strPtr(name)
	u.Timezone = strPtr(tz)
	u.Privilege = int32Ptr(privilege)
	u.CreationTimestamp = int64Ptr(created)
	u.ModificationTimestamp = int64Ptr(mod)
	u.DeletionTimestamp = int64Ptr(deleted)
	u.Active = active != 0
	u.Dirty = dirty != 0
	u.Local = local != 0

	if err := s.loadUserAttributes(ctx, conn, u); err != nil {
		return nil, err
	}
	if err := s.loadUserAccounting(ctx, conn, u); err != nil {
		return nil, err
	}
	if err := s.loadUserPremiumInfo(ctx, conn, u); err != nil {
		return nil, err
	}
	if err := s.loadUserBusinessInfo(ctx, conn, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser soft-deletes a synchronized user: the entity must carry a
// deletion timestamp. A local user is expunged.
func (s *LocalStorage) DeleteUser(ctx context.Context, u *types.User) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	stored, err := s.FindUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if stored.Local {
		return s.ExpungeUser(ctx, u)
	}
	if u.DeletionTimestamp == nil {
		return storage.ErrExpungePolicy
	}
	u.Dirty = true
	u.Active = false
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return exec(ctx, conn, `
			UPDATE users
			SET deletion_timestamp = ?, is_active = 0, is_dirty = 1
			WHERE id = ?`, *u.DeletionTimestamp, u.ID)
	})
}

// ExpungeUser permanently removes a local user row and its side records.
func (s *LocalStorage) ExpungeUser(ctx context.Context, u *types.User) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	stored, err := s.FindUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if !stored.Local {
		return storage.ErrExpungePolicy
	}
	return s.inTransaction(ctx, txImmediate, func(conn *sql.Conn) error {
		return exec(ctx, conn, `DELETE FROM users WHERE id = ?`, u.ID)
	})
}

// CountUsers returns the number of non-deleted users.
func (s *LocalStorage) CountUsers(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM users WHERE deletion_timestamp IS NULL`)
}

func (s *LocalStorage) insertOrReplaceUser(ctx context.Context, conn *sql.Conn, u *types.User) error {
	stmt := `
		INSERT OR REPLACE INTO users (
			id, username, email, name, timezone, privilege,
			creation_timestamp, modification_timestamp, deletion_timestamp,
			is_active, is_dirty, is_local
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := conn.ExecContext(ctx, stmt,
		u.ID, u.Username, nullString(u.Email), nullString(u.Name), nullString(u.Timezone),
		nullInt32(u.Privilege),
		nullInt64(u.CreationTimestamp), nullInt64(u.ModificationTimestamp), nullInt64(u.DeletionTimestamp),
		boolToInt(u.Active), boolToInt(u.Dirty), boolToInt(u.Local),
	); err != nil {
		return &storage.SQLError{Stmt: stmt, Err: err}
	}

	if u.Attributes != nil {
		a := u.Attributes
		stmt := `
			INSERT OR REPLACE INTO user_attributes (
				user_id, default_location_name, default_latitude, default_longitude,
				preactivation, incoming_email_address, comments,
				date_agreed_to_terms_of_service, max_referrals, referral_count,
				referer_code, sent_email_date
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := conn.ExecContext(ctx, stmt, u.ID,
			nullString(a.DefaultLocationName), nullFloat(a.DefaultLatitude), nullFloat(a.DefaultLongitude),
			nullBool(a.Preactivation), nullString(a.IncomingEmailAddress), nullString(a.Comments),
			nullInt64(a.DateAgreedToTermsOfService), nullInt32(a.MaxReferrals), nullInt32(a.ReferralCount),
			nullString(a.RefererCode), nullInt64(a.SentEmailDate),
		); err != nil {
			return &storage.SQLError{Stmt: stmt, Err: err}
		}
	}

	if u.Accounting != nil {
		a := u.Accounting
		stmt := `
			INSERT OR REPLACE INTO user_accounting (
				user_id, upload_limit, upload_limit_end, upload_limit_next_month,
				premium_service_status, premium_order_number, premium_service_start,
				premium_service_sku, last_successful_charge, last_failed_charge,
				last_failed_charge_reason, next_payment_due, premium_lock_until, updated
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := conn.ExecContext(ctx, stmt, u.ID,
			nullInt64(a.UploadLimit), nullInt64(a.UploadLimitEnd), nullInt64(a.UploadLimitNextMonth),
			nullInt32(a.PremiumServiceStatus), nullString(a.PremiumOrderNumber), nullInt64(a.PremiumServiceStart),
			nullString(a.PremiumServiceSKU), nullInt64(a.LastSuccessfulCharge), nullInt64(a.LastFailedCharge),
			nullString(a.LastFailedChargeReason), nullInt64(a.NextPaymentDue), nullInt64(a.PremiumLockUntil),
			nullInt64(a.Updated),
		); err != nil {
			return &storage.SQLError{Stmt: stmt, Err: err}
		}
	}

	if u.PremiumInfo != nil {
		p := u.PremiumInfo
		stmt := `
			INSERT OR REPLACE INTO user_premium_info (
				user_id, current_time_, premium, premium_recurring,
				premium_expiration_date, premium_extendable, premium_pending,
				premium_cancellation_pending, can_purchase_upload_allowance,
				sponsored_group_name
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := conn.ExecContext(ctx, stmt, u.ID,
			nullInt64(p.CurrentTime), nullBool(p.Premium), nullBool(p.PremiumRecurring),
			nullInt64(p.PremiumExpirationDate), nullBool(p.PremiumExtendable), nullBool(p.PremiumPending),
			nullBool(p.PremiumCancellationPending), nullBool(p.CanPurchaseUploadAllowance),
			nullString(p.SponsoredGroupName),
		); err != nil {
			return &storage.SQLError{Stmt: stmt, Err: err}
		}
	}

	if u.BusinessUserInfo != nil {
		b := u.BusinessUserInfo
		stmt := `
			INSERT OR REPLACE INTO user_business_info
				(user_id, business_id, business_name, role, email)
			VALUES (?, ?, ?, ?, ?)`
		if _, err := conn.ExecContext(ctx, stmt, u.ID,
			nullInt32(b.BusinessID), nullString(b.BusinessName), nullInt32(b.Role), nullString(b.Email),
		); err != nil {
			return &storage.SQLError{Stmt: stmt, Err: err}
		}
	}

	return nil
}

func (s *LocalStorage) loadUserAttributes(ctx context.Context, conn *sql.Conn, u *types.User) error {
	query := `
		SELECT default_location_name, default_latitude, default_longitude,
		       preactivation, incoming_email_address, comments,
		       date_agreed_to_terms_of_service, max_referrals, referral_count,
		       referer_code, sent_email_date
		FROM user_attributes WHERE user_id = ?`
	var (
		loc            sql.NullString
		lat, lon       sql.NullFloat64
		preact         sql.NullBool
		incoming       sql.NullString
		comments       sql.NullString
		agreed         sql.NullInt64
		maxRef, refCnt sql.NullInt64
		refCode        sql.NullString
		sentEmail      sql.NullInt64
	)
	err := conn.QueryRowContext(ctx, query, u.ID).Scan(
		&loc, &lat, &lon, &preact, &incoming, &comments,
		&agreed, &maxRef, &refCnt, &refCode, &sentEmail,
	)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return &storage.SQLError{Stmt: query, Err: err}
	}
	u.Attributes = &types.UserAttributes{
		DefaultLocationName:        strPtr(loc),
		DefaultLatitude:            floatPtr(lat),
		DefaultLongitude:           floatPtr(lon),
		Preactivation:              boolPtr(preact),
		IncomingEmailAddress:       strPtr(incoming),
		Comments:                   strPtr(comments),
		DateAgreedToTermsOfService: int64Ptr(agreed),
		MaxReferrals:               int32Ptr(maxRef),
		ReferralCount:              int32Ptr(refCnt),
		RefererCode:                strPtr(refCode),
		SentEmailDate:              int64Ptr(sentEmail),
	}
	return nil
}

func (s *LocalStorage) loadUserAccounting(ctx context.Context, conn *sql.Conn, u *types.User) error {
	query := `
		SELECT upload_limit, upload_limit_end, upload_limit_next_month,
		       premium_service_status, premium_order_number, premium_service_start,
		       premium_service_sku, last_successful_charge, last_failed_charge,
		       last_failed_charge_reason, next_payment_due, premium_lock_until, updated
		FROM user_accounting WHERE user_id = ?`
	var (
		upLimit, upEnd, upNext sql.NullInt64
		status                 sql.NullInt64
		orderNo                sql.NullString
		start                  sql.NullInt64
		sku                    sql.NullString
		lastOK, lastFail       sql.NullInt64
		failReason             sql.NullString
		nextDue, lockUntil     sql.NullInt64
		updated                sql.NullInt64
	)
	err := conn.QueryRowContext(ctx, query, u.ID).Scan(
		&upLimit, &upEnd, &upNext, &status, &orderNo, &start, &sku,
		&lastOK, &lastFail, &failReason, &nextDue, &lockUntil, &updated,
	)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return &storage.SQLError{Stmt: query, Err: err}
	}
	u.Accounting = &types.Accounting{
		UploadLimit:            int64Ptr(upLimit),
		UploadLimitEnd:         int64Ptr(upEnd),
		UploadLimitNextMonth:   int64Ptr(upNext),
		PremiumServiceStatus:   int32Ptr(status),
		PremiumOrderNumber:     strPtr(orderNo),
		PremiumServiceStart:    int64Ptr(start),
		PremiumServiceSKU:      strPtr(sku),
		LastSuccessfulCharge:   int64Ptr(lastOK),
		LastFailedCharge:       int64Ptr(lastFail),
		LastFailedChargeReason: strPtr(failReason),
		NextPaymentDue:         int64Ptr(nextDue),
		PremiumLockUntil:       int64Ptr(lockUntil),
		Updated:                int64Ptr(updated),
	}
	return nil
}

func (s *LocalStorage) loadUserPremiumInfo(ctx context.Context, conn *sql.Conn, u *types.User) error {
	query := `
		SELECT current_time_, premium, premium_recurring, premium_expiration_date,
		       premium_extendable, premium_pending, premium_cancellation_pending,
		       can_purchase_upload_allowance, sponsored_group_name
		FROM user_premium_info WHERE user_id = ?`
	var (
		current       sql.NullInt64
		premium       sql.NullBool
		recurring     sql.NullBool
		expiration    sql.NullInt64
		extendable    sql.NullBool
		pending       sql.NullBool
		cancelPending sql.NullBool
		canPurchase   sql.NullBool
		group         sql.NullString
	)
	err := conn.QueryRowContext(ctx, query, u.ID).Scan(
		&current, &premium, &recurring, &expiration, &extendable,
		&pending, &cancelPending, &canPurchase, &group,
	)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return &storage.SQLError{Stmt: query, Err: err}
	}
	u.PremiumInfo = &types.PremiumInfo{
		CurrentTime:                int64Ptr(current),
		Premium:                    boolPtr(premium),
		PremiumRecurring:           boolPtr(recurring),
		PremiumExpirationDate:      int64Ptr(expiration),
		PremiumExtendable:          boolPtr(extendable),
		PremiumPending:             boolPtr(pending),
		PremiumCancellationPending: boolPtr(cancelPending),
		CanPurchaseUploadAllowance: boolPtr(canPurchase),
		SponsoredGroupName:         strPtr(group),
	}
	return nil
}

func (s *LocalStorage) loadUserBusinessInfo(ctx context.Context, conn *sql.Conn, u *types.User) error {
	query := `
		SELECT business_id, business_name, role, email
		FROM user_business_info WHERE user_id = ?`
	var (
		id    sql.NullInt64
		name  sql.NullString
		role  sql.NullInt64
		email sql.NullString
	)
	err := conn.QueryRowContext(ctx, query, u.ID).Scan(&id, &name, &role, &email)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return &storage.SQLError{Stmt: query, Err: err}
	}
	u.BusinessUserInfo = &types.BusinessUserInfo{
		BusinessID:   int32Ptr(id),
		BusinessName: strPtr(name),
		Role:         int32Ptr(role),
		Email:        strPtr(email),
	}
	return nil
}
