package validators

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/planease/engine/internal/api/types"
)

func TestSaveStepRequest(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(types.SaveStepRequest{Step: "councilConditions", Data: json.RawMessage(`{}`)}))

	err := v.Struct(types.SaveStepRequest{Step: "payment", Data: json.RawMessage(`{}`)})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, "step", verrs[0].Field())
	require.Equal(t, "intake_step", verrs[0].Tag())
}

func TestCreateSessionRequest(t *testing.T) {
	v := New()
	require.Error(t, v.Struct(types.CreateSessionRequest{}))
	require.NoError(t, v.Struct(types.CreateSessionRequest{CouncilCode: "BCC"}))
}
