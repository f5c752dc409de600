// Package identityrpc is the gRPC contract between the client and the
// identity gateway. Messages travel as google.protobuf.Struct and are
// converted to the typed structs below at the edge.
package identityrpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "caliope.identity.v1.Identity"

const (
	MethodSignUp        = "/" + ServiceName + "/SignUp"
	MethodSignIn        = "/" + ServiceName + "/SignIn"
	MethodSignInWithIdp = "/" + ServiceName + "/SignInWithIdp"
	MethodRefreshToken  = "/" + ServiceName + "/RefreshToken"
	MethodSignOut       = "/" + ServiceName + "/SignOut"
	MethodPresignUpload = "/" + ServiceName + "/PresignUpload"
	MethodPing          = "/" + ServiceName + "/Ping"
)

// StatusOK is the Ping reply of a healthy gateway.
const StatusOK = "OK"

// ProviderGoogle names the only supported identity provider.
const ProviderGoogle = "google.com"

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithIdpRequest carries a token issued by an external identity
// provider. The gateway resolves the account from it.
type SignInWithIdpRequest struct {
	Provider    string `json:"provider"`
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token,omitempty"`
}

// AuthResponse is returned by every call that establishes a session.
type AuthResponse struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IsNewUser    bool   `json:"is_new_user,omitempty"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type SignOutResponse struct{}

type PresignUploadRequest struct {
	ContentType string `json:"content_type"`
}

type PresignUploadResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// ToStruct converts a typed message into its wire form.
func ToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

// FromStruct decodes the wire form s into v. A nil s leaves v untouched.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
