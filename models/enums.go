package models

type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "Pending"
	CommissionStatusApproved  CommissionStatus = "Approved"
	CommissionStatusPaid      CommissionStatus = "Paid"
	CommissionStatusCancelled CommissionStatus = "Cancelled"
)

func (s CommissionStatus) Valid() bool {
	switch s {
	case CommissionStatusPending, CommissionStatusApproved, CommissionStatusPaid, CommissionStatusCancelled:
		return true
	}
	return false
}

type CalculationType string

const (
	CalculationTypePercentage CalculationType = "Percentage"
	CalculationTypeFixed      CalculationType = "Fixed"
)

func (t CalculationType) Valid() bool {
	switch t {
	case CalculationTypePercentage, CalculationTypeFixed:
		return true
	}
	return false
}

// CommissionSourceType tags the entity that triggered a commission.
type CommissionSourceType string

const (
	CommissionSourceTypeOrder    CommissionSourceType = "Order"
	CommissionSourceTypeVendor   CommissionSourceType = "Vendor"
	CommissionSourceTypeDriver   CommissionSourceType = "Driver"
	CommissionSourceTypeMarketer CommissionSourceType = "Marketer"
)

func (t CommissionSourceType) Valid() bool {
	switch t {
	case CommissionSourceTypeOrder, CommissionSourceTypeVendor, CommissionSourceTypeDriver, CommissionSourceTypeMarketer:
		return true
	}
	return false
}

// BeneficiaryType tags the party owed money by a commission.
type BeneficiaryType string

const (
	BeneficiaryTypeDriver   BeneficiaryType = "Driver"
	BeneficiaryTypeVendor   BeneficiaryType = "Vendor"
	BeneficiaryTypeMarketer BeneficiaryType = "Marketer"
	BeneficiaryTypeCompany  BeneficiaryType = "Company"
)

func (t BeneficiaryType) Valid() bool {
	switch t {
	case BeneficiaryTypeDriver, BeneficiaryTypeVendor, BeneficiaryTypeMarketer, BeneficiaryTypeCompany:
		return true
	}
	return false
}

type PayoutBatchStatus string

const (
	PayoutBatchStatusPending    PayoutBatchStatus = "Pending"
	PayoutBatchStatusProcessing PayoutBatchStatus = "Processing"
	PayoutBatchStatusCompleted  PayoutBatchStatus = "Completed"
	PayoutBatchStatusFailed     PayoutBatchStatus = "Failed"
	PayoutBatchStatusCancelled  PayoutBatchStatus = "Cancelled"
)

func (s PayoutBatchStatus) Valid() bool {
	switch s {
	case PayoutBatchStatusPending, PayoutBatchStatusProcessing, PayoutBatchStatusCompleted,
		PayoutBatchStatusFailed, PayoutBatchStatusCancelled:
		return true
	}
	return false
}

type PayoutItemStatus string

const (
	PayoutItemStatusPending   PayoutItemStatus = "Pending"
	PayoutItemStatusProcessed PayoutItemStatus = "Processed"
	PayoutItemStatusFailed    PayoutItemStatus = "Failed"
	PayoutItemStatusRefunded  PayoutItemStatus = "Refunded"
)

type PayoutItemType string

const (
	PayoutItemTypeCommission PayoutItemType = "Commission"
	PayoutItemTypeRefund     PayoutItemType = "Refund"
	PayoutItemTypeWithdrawal PayoutItemType = "Withdrawal"
	PayoutItemTypeOther      PayoutItemType = "Other"
)

type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "BankTransfer"
	PaymentMethodMobileMoney  PaymentMethod = "MobileMoney"
	PaymentMethodCash         PaymentMethod = "Cash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodMobileMoney, PaymentMethodCash:
		return true
	}
	return false
}

type SettlementStatus string

const (
	SettlementStatusDraft           SettlementStatus = "Draft"
	SettlementStatusPendingApproval SettlementStatus = "PendingApproval"
	SettlementStatusApproved        SettlementStatus = "Approved"
	SettlementStatusPaid            SettlementStatus = "Paid"
	SettlementStatusCancelled       SettlementStatus = "Cancelled"
)

func (s SettlementStatus) Valid() bool {
	switch s {
	case SettlementStatusDraft, SettlementStatusPendingApproval, SettlementStatusApproved,
		SettlementStatusPaid, SettlementStatusCancelled:
		return true
	}
	return false
}

// SettlementEntityType tags the entity a settlement is computed for.
type SettlementEntityType string

const (
	SettlementEntityTypeVendor   SettlementEntityType = "Vendor"
	SettlementEntityTypeDriver   SettlementEntityType = "Driver"
	SettlementEntityTypeMarketer SettlementEntityType = "Marketer"
)

func (t SettlementEntityType) Valid() bool {
	switch t {
	case SettlementEntityTypeVendor, SettlementEntityTypeDriver, SettlementEntityTypeMarketer:
		return true
	}
	return false
}

type ReconciliationStatus string

const (
	ReconciliationStatusPending           ReconciliationStatus = "Pending"
	ReconciliationStatusInProgress        ReconciliationStatus = "InProgress"
	ReconciliationStatusCompleted         ReconciliationStatus = "Completed"
	ReconciliationStatusFailed            ReconciliationStatus = "Failed"
	ReconciliationStatusRequiresAttention ReconciliationStatus = "RequiresAttention"
)

func (s ReconciliationStatus) Valid() bool {
	switch s {
	case ReconciliationStatusPending, ReconciliationStatusInProgress, ReconciliationStatusCompleted,
		ReconciliationStatusFailed, ReconciliationStatusRequiresAttention:
		return true
	}
	return false
}

type ReconciliationPeriodType string

const (
	ReconciliationPeriodTypeDaily   ReconciliationPeriodType = "Daily"
	ReconciliationPeriodTypeWeekly  ReconciliationPeriodType = "Weekly"
	ReconciliationPeriodTypeMonthly ReconciliationPeriodType = "Monthly"
	ReconciliationPeriodTypeCustom  ReconciliationPeriodType = "Custom"
)

func (t ReconciliationPeriodType) Valid() bool {
	switch t {
	case ReconciliationPeriodTypeDaily, ReconciliationPeriodTypeWeekly,
		ReconciliationPeriodTypeMonthly, ReconciliationPeriodTypeCustom:
		return true
	}
	return false
}

type ReconciliationIssueType string

const (
	ReconciliationIssueTypeMissingTransaction ReconciliationIssueType = "MissingTransaction"
	ReconciliationIssueTypeAmountMismatch     ReconciliationIssueType = "AmountMismatch"
	ReconciliationIssueTypeDuplicate          ReconciliationIssueType = "Duplicate"
	ReconciliationIssueTypeOther              ReconciliationIssueType = "Other"
)

func (t ReconciliationIssueType) Valid() bool {
	switch t {
	case ReconciliationIssueTypeMissingTransaction, ReconciliationIssueTypeAmountMismatch,
		ReconciliationIssueTypeDuplicate, ReconciliationIssueTypeOther:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPreparing OrderStatus = "Preparing"
	OrderStatusOnTheWay  OrderStatus = "OnTheWay"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)
