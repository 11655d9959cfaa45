package user

import "testing"

func TestRole_Allows(t *testing.T) {
	tests := []struct {
		role     Role
		required Role
		want     bool
	}{
		{role: RoleMiner, required: RoleMiner, want: true},
		{role: RoleMiner, required: RoleModerator, want: false},
		{role: RoleMiner, required: RoleAdmin, want: false},
		{role: RoleModerator, required: RoleMiner, want: false},
		{role: RoleModerator, required: RoleModerator, want: true},
		{role: RoleModerator, required: RoleAdmin, want: false},
		{role: RoleAdmin, required: RoleMiner, want: false},
		{role: RoleAdmin, required: RoleModerator, want: true},
		{role: RoleAdmin, required: RoleAdmin, want: true},
		{role: Role("teacher"), required: RoleModerator, want: false},
		{role: RoleAdmin, required: Role(""), want: false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"->"+string(tt.required), func(t *testing.T) {
			if got := tt.role.Allows(tt.required); got != tt.want {
				t.Errorf("Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_Require(t *testing.T) {
	tests := []struct {
		name    string
		usr     User
		role    Role
		wantErr bool
	}{
		{name: "active miner", usr: User{ID: "1", Role: RoleMiner, IsActive: true}, role: RoleMiner},
		{name: "inactive miner", usr: User{ID: "1", Role: RoleMiner}, role: RoleMiner, wantErr: true},
		{name: "anonymous", usr: User{Role: RoleMiner, IsActive: true}, role: RoleMiner, wantErr: true},
		{name: "admin as moderator", usr: User{ID: "1", Role: RoleAdmin, IsActive: true}, role: RoleModerator},
		{name: "moderator as miner", usr: User{ID: "1", Role: RoleModerator, IsActive: true}, role: RoleMiner, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.usr.Require(tt.role); (err != nil) != tt.wantErr {
				t.Errorf("Require() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUser_CheckPassword(t *testing.T) {
	var usr User
	if err := usr.SetPassword("s3cret-pass"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	if err := usr.CheckPassword("s3cret-pass"); err != nil {
		t.Errorf("CheckPassword() unexpected error = %v", err)
	}
	if err := usr.CheckPassword("wrong"); err == nil {
		t.Errorf("CheckPassword() expected an error")
	}
}
