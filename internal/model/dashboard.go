package model

type MonthlyRevenue struct {
	Month  string  `json:"month"`
	Period Period  `json:"period"`
	Amount float64 `json:"amount"`
}

type RecentPayment struct {
	ID         int64         `json:"id"`
	TenantName string        `json:"tenant_name"`
	HouseName  string        `json:"house_name"`
	Amount     float64       `json:"amount"`
	Method     PaymentMethod `json:"method"`
	Date       Date          `json:"date"`
}

type TopHouse struct {
	Name     string  `json:"name"`
	Expected float64 `json:"expected"`
	Received float64 `json:"received"`
}

type DashboardStats struct {
	Period            Period           `json:"period"`
	TotalUnits        int              `json:"total_units"`
	OccupiedUnits     int              `json:"occupied_units"`
	VacantUnits       int              `json:"vacant_units"`
	TotalExpectedRent float64          `json:"total_expected_rent"`
	TotalReceivedRent float64          `json:"total_received_rent"`
	OutstandingRent   float64          `json:"outstanding_rent"`
	OverdueTenants    int              `json:"overdue_tenants"`
	OccupancyRate     float64          `json:"occupancy_rate"`
	MonthlyRevenue    []MonthlyRevenue `json:"monthly_revenue"`
	RecentPayments    []RecentPayment  `json:"recent_payments"`
	TopHouses         []TopHouse       `json:"top_houses"`
}
