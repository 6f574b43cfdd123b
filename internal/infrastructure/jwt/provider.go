package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/telecare-api/internal/config"
)

// Claims holds the API bearer-token payload fields.
type Claims struct {
	ProfileID string `json:"profile_id"`
	DeviceID  string `json:"device_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// VideoClaims is the payload of a video-SDK credential issued by the token
// endpoint. Scoped to one user; the audience separates it from API bearers
// so one can never be replayed as the other.
type VideoClaims struct {
	ProfileID string `json:"profile_id"`
	jwt.RegisteredClaims
}

const videoAudience = "video-sdk"

// Provider signs and verifies RS256 JWTs.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
	videoTTL   time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{
		privateKey: privKey,
		publicKey:  pubKey,
		expiry:     cfg.JWTExpiry,
		videoTTL:   cfg.VideoTokenTTL,
	}, nil
}

func (p *Provider) Sign(profileID, deviceID, role, sessionID string) (string, error) {
	claims := Claims{
		ProfileID: profileID,
		DeviceID:  deviceID,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	// Video credentials share the profile_id field, so a parse alone would
	// accept one here. An API bearer never carries the video audience and
	// always carries the session it was minted for.
	for _, aud := range claims.Audience {
		if aud == videoAudience {
			return nil, errors.New("video credential is not an api bearer")
		}
	}
	if claims.SessionID == "" {
		return nil, errors.New("token missing session id")
	}
	return claims, nil
}

// SignVideoCredential issues a short-lived credential for the external video
// SDK, scoped to the given user.
func (p *Provider) SignVideoCredential(profileID string) (string, error) {
	claims := VideoClaims{
		ProfileID: profileID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{videoAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.videoTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}
