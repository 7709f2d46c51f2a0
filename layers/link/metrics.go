package link

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	promSubsystemChannel  = "channel"
	promSubsystemListener = "listener"
	labelNameInterface    = "interface"
	labelNameVerdict      = "verdict"
)

var (
	metricLabelsChannel = []string{labelNameInterface}
	sentBytes           = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemChannel,
		Name:      "sent_bytes",
		Help:      "Total number of sent bytes.",
	}, metricLabelsChannel)
	recvdBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemChannel,
		Name:      "recvd_bytes",
		Help:      "Total number of received bytes.",
	}, metricLabelsChannel)
	joinedGroups = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemChannel,
		Name:      "joined_multicast_groups",
		Help:      "Number of multicast groups currently joined.",
	}, metricLabelsChannel)
	framesRecvd = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemListener,
		Name:      "recvd_frames",
		Help:      "Total number of received frames by filter verdict.",
	}, []string{labelNameInterface, labelNameVerdict})
)
