package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/golf-arbitri/referee-system/models"
)

// Имена JWT claims, которые выдаёт auth-обработчик.
const (
	jwtClaimUserID   = "user_id"
	jwtClaimUserType = "user_type"
	jwtClaimZoneID   = "zone_id"
)

func claimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return nil, errors.New("user claims not found in context or invalid type")
	}
	return claims, nil
}

func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return 0, err
	}

	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing %q claim in token", jwtClaimUserID)
	}

	// encoding/json декодирует числа в float64.
	userIDFloat, ok := userIDClaim.(float64)
	if !ok {
		return 0, fmt.Errorf("invalid type for %q claim: expected number, got %T", jwtClaimUserID, userIDClaim)
	}
	if userIDFloat != float64(int(userIDFloat)) || int(userIDFloat) <= 0 {
		return 0, fmt.Errorf("invalid user ID value in %q claim: %v", jwtClaimUserID, userIDClaim)
	}

	return int(userIDFloat), nil
}

func GetUserTypeFromContext(ctx context.Context) (models.UserType, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return "", err
	}

	typeClaim, ok := claims[jwtClaimUserType]
	if !ok {
		return "", fmt.Errorf("missing %q claim in token", jwtClaimUserType)
	}
	typeStr, ok := typeClaim.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for %q claim: expected string, got %T", jwtClaimUserType, typeClaim)
	}

	userType := models.UserType(typeStr)
	switch userType {
	case models.TypeSuperAdmin, models.TypeNationalAdmin, models.TypeZoneAdmin, models.TypeReferee:
		return userType, nil
	default:
		return "", fmt.Errorf("invalid user type value in claim: %q", typeStr)
	}
}

// GetZoneIDFromContext возвращает зону из токена; (nil, nil) для
// национальных ролей без зоны.
func GetZoneIDFromContext(ctx context.Context) (*int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	zoneClaim, ok := claims[jwtClaimZoneID]
	if !ok || zoneClaim == nil {
		return nil, nil
	}
	zoneFloat, ok := zoneClaim.(float64)
	if !ok {
		return nil, fmt.Errorf("invalid type for %q claim: expected number, got %T", jwtClaimZoneID, zoneClaim)
	}

	zoneID := int(zoneFloat)
	return &zoneID, nil
}
