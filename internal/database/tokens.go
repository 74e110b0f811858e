package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// UpsertFCMToken registers a push token, moving it to userID if another
// account held it before
func UpsertFCMToken(ctx context.Context, db *sqlx.DB, userID, token, deviceType string) error {
	now := time.Now().Unix()
	query := db.Rebind(`INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			user_id = excluded.user_id,
			device_type = excluded.device_type,
			updated_at = excluded.updated_at`)

	if _, err := db.ExecContext(ctx, query, userID, token, deviceType, now, now); err != nil {
		return fmt.Errorf("failed to register FCM token: %w", err)
	}
	return nil
}

func DeleteFCMToken(ctx context.Context, db *sqlx.DB, userID, token string) (bool, error) {
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM fcm_tokens WHERE user_id = ? AND token = ?`), userID, token)
	if err != nil {
		return false, fmt.Errorf("failed to delete FCM token: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// TokensForRoles returns every push token owned by a user with one of roles
func TokensForRoles(ctx context.Context, db *sqlx.DB, roles ...string) ([]string, error) {
	if len(roles) == 0 {
		return []string{}, nil
	}
	query, args, err := sqlx.In(`SELECT t.token FROM fcm_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE u.role IN (?)
		ORDER BY t.updated_at DESC`, roles)
	if err != nil {
		return nil, err
	}

	tokens := []string{}
	if err := db.SelectContext(ctx, &tokens, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load FCM tokens: %w", err)
	}
	return tokens, nil
}
