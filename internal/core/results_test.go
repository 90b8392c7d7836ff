package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCodes_Closed(t *testing.T) {
	assert.Len(t, LoginResultCodes(), 10)
	assert.Len(t, FetchResultCodes(), 13)

	for _, c := range LoginResultCodes() {
		assert.NotEqual(t, CategoryUnknown, c.Category(), c)
	}
	for _, c := range FetchResultCodes() {
		assert.NotEqual(t, CategoryUnknown, c.Category(), c)
	}

	var lc LoginResultCode
	assert.ErrorIs(t, json.Unmarshal([]byte(`"UNEXPECTED_ERROR"`), &lc), ErrUnknownTag)
	require.NoError(t, json.Unmarshal([]byte(`"UNEXPECTED_LOGIN_ERROR"`), &lc))
	assert.Equal(t, LoginUnexpectedError, lc)

	var fc FetchResultCode
	assert.ErrorIs(t, json.Unmarshal([]byte(`"PARTIAL"`), &fc), ErrUnknownTag)
}

func TestResultCategories(t *testing.T) {
	tests := []struct {
		code string
		want ResultCategory
	}{
		{"COMPLETED", CategorySuccess},
		{"COOLDOWN", CategoryIncomplete},
		{"NOT_LOGGED", CategoryIncomplete},
		{"CODE_REQUESTED", CategoryDeferral},
		{"MANUAL_LOGIN", CategoryDeferral},
		{"ENTITY_NOT_FOUND", CategoryBadInput},
		{"DISABLED", CategoryBadInput},
		{"INVALID_CODE", CategoryBadInput},
		{"NO_CREDENTIALS_AVAILABLE", CategoryNotConfigured},
		{"LOGIN_REQUIRED", CategoryHardError},
		{"UNEXPECTED_LOGIN_ERROR", CategoryHardError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, FetchResultCode(tt.code).Category())
		})
	}
	assert.Equal(t, CategorySuccess, LoginCreated.Category())
	assert.Equal(t, CategorySuccess, LoginResumed.Category())
	assert.True(t, FetchCooldown.Category().Retryable())
	assert.False(t, FetchInvalidCode.Category().Retryable())
	assert.False(t, FetchLoginRequired.Category().Retryable())
}

func TestFetchCodeFromLogin(t *testing.T) {
	assert.Equal(t, FetchCompleted, FetchCodeFromLogin(LoginResumed))
	assert.Equal(t, FetchCodeRequested, FetchCodeFromLogin(LoginCodeRequested))
	assert.Equal(t, FetchInvalidCredentials, FetchCodeFromLogin(LoginInvalidCredentials))
	assert.Equal(t, FetchUnexpectedLoginError, FetchCodeFromLogin(LoginUnexpectedError))
	assert.Equal(t, FetchUnexpectedLoginError, FetchCodeFromLogin("SOMETHING"))
}

func TestFetchResponse_Details(t *testing.T) {
	tests := []struct {
		name    string
		resp    FetchResponse
		wantErr bool
		want    string
	}{
		{
			name: "cooldown with countdown",
			resp: FetchResponse{Code: FetchCooldown, Details: Countdown{Seconds: 42}},
			want: `{"code":"COOLDOWN","details":{"countdown":42}}`,
		},
		{
			name: "code requested with process",
			resp: FetchResponse{Code: FetchCodeRequested, Details: ProcessRef{ProcessID: "p-1"}},
			want: `{"code":"CODE_REQUESTED","details":{"processId":"p-1"}}`,
		},
		{
			name: "completed without data",
			resp: FetchResponse{Code: FetchCompleted},
			want: `{"code":"COMPLETED"}`,
		},
		{
			name:    "countdown on completed",
			resp:    FetchResponse{Code: FetchCompleted, Details: Countdown{Seconds: 1}},
			wantErr: true,
		},
		{
			name:    "negative countdown",
			resp:    FetchResponse{Code: FetchCooldown, Details: Countdown{Seconds: -1}},
			wantErr: true,
		},
		{
			name:    "data on cooldown",
			resp:    FetchResponse{Code: FetchCooldown, Data: &FetchedData{}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.resp)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDetails)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))

			var back FetchResponse
			require.NoError(t, json.Unmarshal(b, &back))
			assert.Equal(t, tt.resp, back)
		})
	}
}

func TestFetchResponse_RejectsMismatchedDetails(t *testing.T) {
	var r FetchResponse
	err := json.Unmarshal([]byte(`{"code":"COMPLETED","details":{"countdown":3}}`), &r)
	assert.ErrorIs(t, err, ErrInvalidDetails)

	err = json.Unmarshal([]byte(`{"code":"COOLDOWN","details":{"countdown":3,"processId":"x"}}`), &r)
	assert.ErrorIs(t, err, ErrInvalidDetails)
}

func TestLoginResponse_JSON(t *testing.T) {
	in := LoginResponse{Code: LoginCodeRequested, ProcessID: Ptr("abc"), Details: ProcessRef{ProcessID: "abc"}}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"CODE_REQUESTED","processId":"abc","details":{"processId":"abc"}}`, string(b))

	var out LoginResponse
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	_, err = json.Marshal(LoginResponse{Code: LoginCodeRequested})
	assert.ErrorIs(t, err, ErrInvalidDetails)

	manual := LoginResponse{Code: LoginManual, Details: CredentialsEcho{Credentials: map[string]string{"token": "t"}}}
	b, err = json.Marshal(manual)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"MANUAL_LOGIN","details":{"credentials":{"token":"t"}}}`, string(b))
}
