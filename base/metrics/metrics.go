package metrics

const (
	DaytimeClientReqsSentN      = "nistsync_daytime_client_reqs_sent_total"
	DaytimeClientReqsSentH      = "The total number of requests sent to daytime time authorities"
	DaytimeClientRespsAcceptedN = "nistsync_daytime_client_resps_accepted_total"
	DaytimeClientRespsAcceptedH = "The total number of accepted daytime time authority responses"

	NTPClientReqsSentN      = "nistsync_ntp_client_reqs_sent_total"
	NTPClientReqsSentH      = "The total number of requests sent to NTP time authorities"
	NTPClientRespsAcceptedN = "nistsync_ntp_client_resps_accepted_total"
	NTPClientRespsAcceptedH = "The total number of accepted NTP time authority responses"

	SyncTicksN       = "nistsync_sync_ticks_total"
	SyncTicksH       = "The total number of synchronization ticks performed"
	SyncAppliesN     = "nistsync_sync_applies_total"
	SyncAppliesH     = "The total number of successful system clock applications"
	SyncFetchErrsN   = "nistsync_sync_fetch_errors_total"
	SyncFetchErrsH   = "The total number of ticks that failed to fetch time"
	SyncApplyErrsN   = "nistsync_sync_apply_errors_total"
	SyncApplyErrsH   = "The total number of ticks that failed to set the system clock"
	SyncLastSuccessN = "nistsync_sync_last_success_timestamp_seconds"
	SyncLastSuccessH = "The authoritative timestamp most recently applied to the system clock"

	DaytimeServerConnsAcceptedN = "nistsync_daytime_server_conns_accepted_total"
	DaytimeServerConnsAcceptedH = "The total number of connections accepted by the daytime server"
	DaytimeServerReqsServedN    = "nistsync_daytime_server_reqs_served_total"
	DaytimeServerReqsServedH    = "The total number of requests served by the daytime server"

	NTPServerPktsReceivedN = "nistsync_ntp_server_pkts_received_total"
	NTPServerPktsReceivedH = "The total number of packets received by the NTP server"
	NTPServerReqsAcceptedN = "nistsync_ntp_server_reqs_accepted_total"
	NTPServerReqsAcceptedH = "The total number of requests accepted by the NTP server"
	NTPServerReqsServedN   = "nistsync_ntp_server_reqs_served_total"
	NTPServerReqsServedH   = "The total number of requests served by the NTP server"
)
