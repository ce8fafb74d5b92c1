package groups

import (
	"testing"

	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

func TestValidateRoster(t *testing.T) {
	cases := []struct {
		name    string
		shares  types.MemberShares
		wantErr bool
	}{
		{
			name: "valid two member split",
			shares: types.MemberShares{
				{Addr: "0xaaa", Percentage: 60},
				{Addr: "0xbbb", Percentage: 40},
			},
		},
		{
			name:   "valid single member",
			shares: types.MemberShares{{Addr: "0xaaa", Percentage: 100}},
		},
		{
			name:    "empty roster",
			shares:  types.MemberShares{},
			wantErr: true,
		},
		{
			name: "sum below 100",
			shares: types.MemberShares{
				{Addr: "0xaaa", Percentage: 60},
				{Addr: "0xbbb", Percentage: 30},
			},
			wantErr: true,
		},
		{
			name: "sum above 100",
			shares: types.MemberShares{
				{Addr: "0xaaa", Percentage: 60},
				{Addr: "0xbbb", Percentage: 50},
			},
			wantErr: true,
		},
		{
			name: "duplicate address case insensitive",
			shares: types.MemberShares{
				{Addr: "0xAAA", Percentage: 50},
				{Addr: "0xaaa", Percentage: 50},
			},
			wantErr: true,
		},
		{
			name: "zero percentage",
			shares: types.MemberShares{
				{Addr: "0xaaa", Percentage: 0},
				{Addr: "0xbbb", Percentage: 100},
			},
			wantErr: true,
		},
		{
			name: "percentage above 100",
			shares: types.MemberShares{
				{Addr: "0xaaa", Percentage: 150},
			},
			wantErr: true,
		},
		{
			name: "blank address",
			shares: types.MemberShares{
				{Addr: "  ", Percentage: 100},
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRoster(tc.shares)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
					t.Fatalf("expected validation code, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
