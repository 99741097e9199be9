package usecase

import (
	"context"
	"net/http"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type UserUsecase struct {
	userRepo repo.UserRepository
	tx       repo.TransactionManager
}

func NewUserUsecase(userRepo repo.UserRepository, tx repo.TransactionManager) *UserUsecase {
	return &UserUsecase{userRepo: userRepo, tx: tx}
}

type CreateUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u *UserUsecase) CreateUser(ctx context.Context, in CreateUserInput) (model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len(username) > 50 {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid username")
	}
	email := strings.TrimSpace(in.Email)
	if email == "" || len(email) > 120 || !strings.Contains(email, "@") {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}

	created, err := u.userRepo.Create(ctx, model.User{
		Username: username,
		Email:    email,
	})
	if err != nil {
		//username/emailユニーク制約違反もここに来る
		return model.User{}, NewHTTPError(http.StatusBadRequest, "username or email already taken")
	}
	return created, nil
}

func (u *UserUsecase) GetUser(ctx context.Context, id int64) (model.User, error) {
	if id <= 0 {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	user, err := u.userRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.User{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return user, nil
}

func (u *UserUsecase) ListUsers(ctx context.Context, skip int, limit int) ([]model.User, error) {
	if skip < 0 {
		return []model.User{}, NewHTTPError(http.StatusBadRequest, "invalid skip")
	}
	if limit < 1 {
		return []model.User{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if limit > 100 {
		limit = 100
	}

	users, err := u.userRepo.List(ctx, skip, limit)
	if err != nil {
		return []model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return users, nil
}

// DeleteUser はユーザーと所有注文・明細を1トランザクションでまとめて消す。
func (u *UserUsecase) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Users().FindByID(ctx, id); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "user not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//明細→注文→ユーザーの順で削除（FK相当のカスケード）
		ownedIDs, err := r.Orders().ListIDsByUserID(ctx, id)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.OrderItems().DeleteByOrderIDs(ctx, ownedIDs); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Orders().DeleteByUserID(ctx, id); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Users().Delete(ctx, id); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}
