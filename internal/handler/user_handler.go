package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hufs-wider/wider/internal/auth"
	"github.com/hufs-wider/wider/internal/model"
	"github.com/hufs-wider/wider/internal/user"
)

// AuthServiceInterface は認証情報の操作に必要なサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, in auth.SignUpInput) (*model.User, error)
	SignIn(ctx context.Context, userID, password string) (*auth.SignInResult, error)
	ChangePassword(ctx context.Context, userID, current, new1, new2 string) error
}

// UserServiceInterface はユーザープロフィールの操作に必要なサービスインターフェース。
type UserServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	Update(ctx context.Context, in user.UpdateInput) (*model.User, error)
	Delete(ctx context.Context, userID string) error
}

// SignInRecorder はサインイン結果をメトリクスに記録する。
type SignInRecorder interface {
	RecordSignIn(success bool)
}

// UserHandler はユーザー・認証関連のHTTPハンドラー。
type UserHandler struct {
	auth    AuthServiceInterface
	users   UserServiceInterface
	signIns SignInRecorder
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(authService AuthServiceInterface, users UserServiceInterface, signIns SignInRecorder) *UserHandler {
	return &UserHandler{
		auth:    authService,
		users:   users,
		signIns: signIns,
	}
}

type signUpRequest struct {
	UserID    string `json:"user_id"`
	Password  string `json:"password"`
	BirthDate string `json:"birth_date"`
	Gender    string `json:"gender"`
}

type signInRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword  string `json:"current_password"`
	NewPassword      string `json:"new_password"`
	NewPasswordCheck string `json:"new_password_check"`
}

type updateUserRequest struct {
	Password  string `json:"password"`
	BirthDate string `json:"birth_date"`
	Gender    string `json:"gender"`
}

type deleteUserRequest struct {
	UserID string `json:"user_id"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	UserID    string    `json:"user_id"`
	BirthDate string    `json:"birth_date,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type signInResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

// SignUp はユーザー登録を処理する。
// POST /api/users/signup
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.auth.SignUp(r.Context(), auth.SignUpInput{
		UserID:    req.UserID,
		Password:  req.Password,
		BirthDate: req.BirthDate,
		Gender:    req.Gender,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// SignIn はサインインを処理し、トークンを返す。
// POST /api/users/signin
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.SignIn(r.Context(), req.UserID, req.Password)
	h.signIns.RecordSignIn(err == nil)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{
		User:  toUserResponse(result.User),
		Token: result.Token,
	})
}

// Logout はログアウトを処理する。トークンはステートレスなため、クライアント側で破棄する。
// POST /api/users/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "ログアウトしました。"})
}

// ChangePassword はパスワードを変更する。
// POST /api/users/changePassword
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword, req.NewPasswordCheck); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "パスワードを変更しました。"})
}

// Me は認証済みユーザーの情報を返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	h.writeUser(w, r, userID)
}

// Info は指定ユーザーの情報を返す。本人以外は403。
// GET /api/users/{userId}/info
func (h *UserHandler) Info(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if chi.URLParam(r, "userId") != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}
	h.writeUser(w, r, userID)
}

func (h *UserHandler) writeUser(w http.ResponseWriter, r *http.Request, userID string) {
	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateMe は認証済みユーザーのプロフィールを更新する。
// PUT /api/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Update(r.Context(), user.UpdateInput{
		UserID:    userID,
		Password:  req.Password,
		BirthDate: req.BirthDate,
		Gender:    req.Gender,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// Delete はユーザーを削除する。本文のuser_idがトークンの主体と一致しない場合は403。
// POST /api/users/deleteUser
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req deleteUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "ユーザーを削除しました。"})
}

func toUserResponse(u *model.User) userResponse {
	resp := userResponse{
		UserID:    u.UserID,
		Gender:    string(u.Gender),
		CreatedAt: u.CreatedAt,
	}
	if !u.BirthDate.IsZero() {
		resp.BirthDate = u.BirthDate.Format(time.DateOnly)
	}
	return resp
}
