package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Metrics names.
	MetricNameBuildInfo      = "account_manager_build_info"
	MetricNameClosures       = "account_manager_closures_total"
	MetricNameErrors         = "account_manager_errors_total"
	MetricNameAccountsListed = "account_manager_accounts_listed"
	MetricNameRefreshes      = "account_manager_refreshes_total"

	// Labels.
	LabelVersion   = "version"
	LabelCommit    = "commit"
	LabelDate      = "date"
	LabelOutcome   = "outcome"
	LabelErrorType = "error_type"
	LabelKind      = "kind"
	LabelResult    = "result"

	// Error types.
	ErrorTypeFetchAccounts     = "fetch_accounts"
	ErrorTypeCloseAccountInfo  = "close_account_info"
	ErrorTypeCloseDecode       = "close_decode"
	ErrorTypeCloseBalance      = "close_balance"
	ErrorTypeCloseBlockhash    = "close_blockhash"
	ErrorTypeCloseBuild        = "close_build"
	ErrorTypeCloseSign         = "close_sign"
	ErrorTypeCloseSend         = "close_send"
	ErrorTypeCloseConfirm      = "close_confirm"
	ErrorTypeCloseUnclassified = "close_unclassified"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameBuildInfo,
			Help: "Build information of the account manager",
		},
		[]string{LabelVersion, LabelCommit, LabelDate},
	)

	Closures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameClosures,
			Help: "Number of account close attempts by outcome",
		},
		[]string{LabelOutcome},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameErrors,
			Help: "Number of errors encountered",
		},
		[]string{LabelErrorType},
	)

	AccountsListed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameAccountsListed,
			Help: "Number of accounts in the latest listing by kind",
		},
		[]string{LabelKind},
	)

	Refreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRefreshes,
			Help: "Number of account list refreshes by result",
		},
		[]string{LabelResult},
	)
)
