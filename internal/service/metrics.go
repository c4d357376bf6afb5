package service

import "github.com/prometheus/client_golang/prometheus"

var (
	signupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "natours_signups_total", Help: "Count of user signups"},
	)
	bookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "natours_bookings_total", Help: "Count of bookings by source"},
		[]string{"source"},
	)
	ratingsRecomputed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "natours_ratings_recomputed_total", Help: "Count of tour rating recomputations"},
	)
)

func init() { prometheus.MustRegister(signupsTotal, bookingsTotal, ratingsRecomputed) }
