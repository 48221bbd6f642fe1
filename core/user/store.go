package user

import (
	"context"

	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, p Profile) error {
	const q = `
	INSERT INTO profiles (user_id, full_name, mobile_number, address, city, state, pin_code, country, updated_at)
	VALUES (:user_id, :full_name, :mobile_number, :address, :city, :state, :pin_code, :country, :updated_at)`

	_, err := database.NamedExecContext(ctx, db, q, p)
	return err
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string) (Profile, error) {
	const q = `
	SELECT
		p.user_id, u.email, p.full_name, p.mobile_number, p.address,
		p.city, p.state, p.pin_code, p.country, p.updated_at
	FROM profiles p
	JOIN users u ON u.user_id = p.user_id
	WHERE p.user_id = $1`

	var p Profile
	if err := sqlx.GetContext(ctx, db, &p, q, userID); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, p Profile) error {
	const q = `
	UPDATE profiles SET
		full_name = :full_name,
		mobile_number = :mobile_number,
		address = :address,
		city = :city,
		state = :state,
		pin_code = :pin_code,
		country = :country,
		updated_at = :updated_at
	WHERE user_id = :user_id`

	n, err := database.NamedExecContext(ctx, db, q, p)
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrDBNotFound
	}
	return nil
}
