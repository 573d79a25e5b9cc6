package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var (
	// ErrUnauthenticated is returned when a token is missing, malformed, expired or revoked.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Identity is the authenticated caller as supplied by the identity provider.
type Identity struct {
	// UID is the provider's stable user identifier.
	UID string `json:"uid"`
	// Email is the verified email claim, if any.
	Email string `json:"email"`
	// Admin is set by the "admin" custom claim. Admins manage order fulfilment.
	Admin bool `json:"admin"`
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// tokenVerifier is the subset of the Firebase auth client used here.
type tokenVerifier interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier verifies Firebase ID tokens with the Admin SDK.
type FirebaseVerifier struct {
	client tokenVerifier
}

// NewFirebaseVerifier initialises the Firebase app and its auth client.
// credentialsJSON may be empty, in which case application default credentials are used.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsJSON string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

// Verify checks signature, expiry and revocation, then extracts uid, email
// and the admin custom claim.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	t, err := v.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	email, _ := t.Claims["email"].(string)
	admin, _ := t.Claims["admin"].(bool)
	return Identity{UID: t.UID, Email: email, Admin: admin}, nil
}

// DevVerifier accepts tokens of the form "uid:email", or "uid:email:admin"
// for an administrator. Local development only.
type DevVerifier struct{}

// Verify parses a dev token.
func (DevVerifier) Verify(_ context.Context, token string) (Identity, error) {
	uid, rest, ok := strings.Cut(token, ":")
	if !ok || uid == "" {
		return Identity{}, fmt.Errorf("%w: dev token must be uid:email", ErrUnauthenticated)
	}
	email, role, _ := strings.Cut(rest, ":")
	return Identity{UID: uid, Email: email, Admin: role == "admin"}, nil
}
