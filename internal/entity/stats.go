package entity

// DashboardStats is the read-only engagement summary.
type DashboardStats struct {
	TodayViews     int64 `json:"today_views"`
	TotalFavorites int64 `json:"total_favorites"`
	TodayEvents    int64 `json:"today_events"`
	TotalUsers     int64 `json:"total_users"`
	ActiveUsers    int64 `json:"active_users"`
	// distinct users with at least one favorite
	UniqueFavoriteUsers int64            `json:"unique_favorite_users"`
	TypeDistribution    map[string]int64 `json:"type_distribution"`
	TopEvents           []TopEvent       `json:"top_events"`
	ViewTrend           []DailyCount     `json:"view_trend"`
}

type TopEvent struct {
	ID                 int    `json:"id"`
	Title              string `json:"title"`
	Type               string `json:"type"`
	FavoriteCount      int    `json:"favorite_count"`
	FavoriteUsersCount int    `json:"favorite_users_count"`
}

type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}
