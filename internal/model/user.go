package model

import "time"

// User 结构体表示用户模型，ID 由外部身份服务签发
type User struct {
	ID             string    `json:"_id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Username       string    `json:"username"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profile_picture"`
	CoverPhoto     string    `json:"cover_photo"`
	Location       string    `json:"location"`
	Followers      []string  `json:"followers"`
	Following      []string  `json:"following"`
	Connections    []string  `json:"connections"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserSummary 是列表中展示的用户简要信息
type UserSummary struct {
	ID             string `json:"_id"`
	FullName       string `json:"full_name"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture"`
	Bio            string `json:"bio"`
	Location       string `json:"location"`
}

// Summary 转换为简要信息
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		FullName:       u.FullName,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
		Location:       u.Location,
	}
}

// Identity 是经过身份网关验证的调用者信息
type Identity struct {
	UserID   string
	Email    string
	FullName string
	Picture  string
}

// ProfileUpdate 用户资料的可修改字段，空值表示保持不变
type ProfileUpdate struct {
	Username       string
	FullName       string
	Bio            string
	Location       string
	ProfilePicture string
	CoverPhoto     string
}

// ProfileView 个人主页：用户资料及其帖子
type ProfileView struct {
	Profile *User   `json:"profile"`
	Posts   []*Post `json:"posts"`
}
