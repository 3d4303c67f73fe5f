package auth

import (
	"encoding/json"

	"github.com/eppie-io/go-proton-client/restclient"
)

// Identity is the minimal credential set an established session presents on
// authenticated auth-endpoint calls.
type Identity struct {
	UID         string
	AccessToken string
	TokenType   string
}

// VerificationToken is a solved human-verification challenge attached to a
// retried request.
type VerificationToken struct {
	Type  string
	Token string
}

// TwoFactorInfo describes the second-factor configuration the server reported
// at login.
type TwoFactorInfo struct {
	Enabled int `json:"Enabled"`
	TOTP    int `json:"TOTP"`
}

// Data is the result of a credential exchange. The same shape is returned by
// login, second-factor submission and refresh; fields the endpoint does not
// produce are left empty.
type Data struct {
	restclient.CommonResponse

	UID          string        `json:"UID,omitempty"`
	TokenType    string        `json:"TokenType,omitempty"`
	AccessToken  string        `json:"AccessToken,omitempty"`
	RefreshToken string        `json:"RefreshToken,omitempty"`
	ExpiresIn    int64         `json:"ExpiresIn,omitempty"`
	Scope        string        `json:"Scope,omitempty"`
	PasswordMode int           `json:"PasswordMode,omitempty"`
	ServerProof  string        `json:"ServerProof,omitempty"`
	TwoFactor    TwoFactorInfo `json:"2FA"`
}

// infoResponse is the server challenge for the first leg of the SRP exchange.
type infoResponse struct {
	restclient.CommonResponse

	Modulus         string `json:"Modulus"`
	ServerEphemeral string `json:"ServerEphemeral"`
	Version         int    `json:"Version"`
	Salt            string `json:"Salt"`
	SRPSession      string `json:"SRPSession"`
}

type infoRequest struct {
	Username string `json:"Username"`
}

type authRequest struct {
	Username        string `json:"Username"`
	ClientEphemeral string `json:"ClientEphemeral"`
	ClientProof     string `json:"ClientProof"`
	SRPSession      string `json:"SRPSession"`
	ClientSecret    string `json:"ClientSecret,omitempty"`
}

type twoFactorRequest struct {
	TwoFactorCode string `json:"TwoFactorCode"`
}

type refreshRequest struct {
	UID          string `json:"UID"`
	RefreshToken string `json:"RefreshToken"`
	GrantType    string `json:"GrantType"`
	ResponseType string `json:"ResponseType"`
	RedirectURI  string `json:"RedirectURI,omitempty"`
}

// HumanVerification describes a verification challenge the server demands
// before it will accept authentication. CaptchaURL is relative to the API
// host and only meaningful when Methods contains "captcha".
type HumanVerification struct {
	Title       string   `json:"Title,omitempty"`
	Description string   `json:"Description,omitempty"`
	Methods     []string `json:"HumanVerificationMethods,omitempty"`
	Token       string   `json:"HumanVerificationToken,omitempty"`
	CaptchaURL  string   `json:"CaptchaURL,omitempty"`
}

// parseHumanVerification recovers a challenge descriptor from the Details
// blob of an error envelope.
func parseHumanVerification(details json.RawMessage) *HumanVerification {
	if len(details) == 0 {
		return nil
	}
	var hv HumanVerification
	if err := json.Unmarshal(details, &hv); err != nil {
		return nil
	}
	if len(hv.Methods) == 0 && hv.Token == "" {
		return nil
	}
	return &hv
}
