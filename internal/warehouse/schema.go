package warehouse

import "fmt"

// Dates are stored as ISO-8601 TEXT so rows come back as plain strings.
const schemaDDL = `
PRAGMA busy_timeout = 5000;
CREATE TABLE IF NOT EXISTS location (
	LOCATION_ID TEXT PRIMARY KEY,
	REGION TEXT NOT NULL,
	COUNTY TEXT,
	CITY TEXT,
	LATITUDE REAL,
	LONGITUDE REAL
);

CREATE TABLE IF NOT EXISTS circuit (
	CIRCUIT_ID TEXT PRIMARY KEY,
	CIRCUIT_NAME TEXT NOT NULL,
	SUBSTATION_NAME TEXT,
	VOLTAGE_CLASS TEXT,
	FIRE_THREAT_DISTRICT TEXT,
	PRIMARY_LOCATION_ID TEXT REFERENCES location(LOCATION_ID),
	CUSTOMERS_SERVED INTEGER,
	CRITICAL_FACILITIES_COUNT INTEGER,
	CIRCUIT_MILES REAL,
	PSPS_ELIGIBLE INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS asset (
	ASSET_ID TEXT PRIMARY KEY,
	CIRCUIT_ID TEXT REFERENCES circuit(CIRCUIT_ID),
	LOCATION_ID TEXT REFERENCES location(LOCATION_ID),
	ASSET_TYPE TEXT NOT NULL,
	ASSET_SUBTYPE TEXT,
	MATERIAL TEXT,
	VOLTAGE_CLASS TEXT,
	INSTALL_DATE TEXT,
	ASSET_AGE_YEARS REAL,
	HEALTH_SCORE REAL,
	RISK_SCORE REAL,
	CRITICALITY_FACTOR REAL,
	REPLACEMENT_COST REAL,
	MOISTURE_EXPOSURE TEXT,
	LAST_INSPECTION_DATE TEXT,
	NEXT_INSPECTION_DUE TEXT
);
CREATE INDEX IF NOT EXISTS idx_asset_circuit ON asset(CIRCUIT_ID);
CREATE INDEX IF NOT EXISTS idx_asset_type ON asset(ASSET_TYPE);

CREATE TABLE IF NOT EXISTS vegetation_encroachment (
	ENCROACHMENT_ID TEXT PRIMARY KEY,
	ASSET_ID TEXT REFERENCES asset(ASSET_ID),
	SPECIES TEXT,
	TREE_HEIGHT_FT REAL,
	CURRENT_CLEARANCE_FT REAL,
	REQUIRED_CLEARANCE_FT REAL,
	DAYS_TO_CONTACT REAL,
	GROWTH_RATE_FT_YEAR REAL,
	COMPLIANCE_STATUS TEXT,
	PRIORITY TEXT,
	ESTIMATED_TRIM_COST REAL
);
CREATE INDEX IF NOT EXISTS idx_veg_asset ON vegetation_encroachment(ASSET_ID);

CREATE TABLE IF NOT EXISTS risk_assessment (
	ASSESSMENT_ID TEXT PRIMARY KEY,
	ASSET_ID TEXT REFERENCES asset(ASSET_ID),
	ASSESSMENT_DATE TEXT,
	FIRE_RISK_SCORE REAL,
	IGNITION_PROBABILITY REAL,
	CONSEQUENCE_SCORE REAL,
	COMPOSITE_RISK_SCORE REAL,
	RISK_TIER TEXT
);
CREATE INDEX IF NOT EXISTS idx_risk_asset ON risk_assessment(ASSET_ID);

CREATE TABLE IF NOT EXISTS cable_failure_prediction (
	ASSET_ID TEXT PRIMARY KEY REFERENCES asset(ASSET_ID),
	RAIN_CORRELATION_SCORE REAL,
	FAILURE_PROBABILITY REAL,
	CUSTOMER_IMPACT_COUNT INTEGER,
	ESTIMATED_REPLACEMENT_COST REAL,
	RISK_TIER TEXT
);

CREATE TABLE IF NOT EXISTS ami_reading (
	READING_ID TEXT PRIMARY KEY,
	ASSET_ID TEXT REFERENCES asset(ASSET_ID),
	METER_ID TEXT,
	READING_TIMESTAMP TEXT,
	VOLTAGE REAL,
	RAINFALL_MM REAL,
	VOLTAGE_DIP_FLAG INTEGER DEFAULT 0,
	RAIN_CORRELATED_DIP INTEGER DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_ami_asset ON ami_reading(ASSET_ID);

CREATE TABLE IF NOT EXISTS weather_forecast (
	FORECAST_ID TEXT PRIMARY KEY,
	REGION TEXT NOT NULL,
	FORECAST_DATE TEXT,
	WIND_SPEED_MPH REAL,
	HUMIDITY_PCT REAL,
	RED_FLAG_WARNING INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS work_order (
	WORK_ORDER_ID TEXT NOT NULL,
	ASSET_ID TEXT,
	WORK_TYPE TEXT,
	PRIORITY TEXT,
	STATUS TEXT,
	DESCRIPTION TEXT,
	ESTIMATED_HOURS REAL,
	ESTIMATED_COST REAL,
	SCHEDULED_DATE TEXT,
	CREATED_AT TEXT
);
CREATE INDEX IF NOT EXISTS idx_work_order_status ON work_order(STATUS);

-- Prediction views project the seeded tables forward one year. Unscored
-- assets are left out of the health projection.
CREATE VIEW IF NOT EXISTS asset_health_prediction AS
SELECT ASSET_ID, ASSET_TYPE, ACTUAL_HEALTH_SCORE, PREDICTED_HEALTH_SCORE,
       ROUND(PREDICTED_HEALTH_SCORE - ACTUAL_HEALTH_SCORE, 1) AS HEALTH_DELTA,
       CASE
         WHEN PREDICTED_HEALTH_SCORE < 40 THEN 'CRITICAL'
         WHEN PREDICTED_HEALTH_SCORE < 60 THEN 'POOR'
         WHEN PREDICTED_HEALTH_SCORE < 80 THEN 'FAIR'
         ELSE 'GOOD'
       END AS PREDICTED_CONDITION
FROM (
  SELECT ASSET_ID, ASSET_TYPE, HEALTH_SCORE AS ACTUAL_HEALTH_SCORE,
         ROUND(MAX(0, HEALTH_SCORE - 1.3 - CASE MOISTURE_EXPOSURE WHEN 'HIGH' THEN 2.0 ELSE 0 END), 1)
           AS PREDICTED_HEALTH_SCORE
  FROM asset
  WHERE HEALTH_SCORE IS NOT NULL
);

CREATE VIEW IF NOT EXISTS vegetation_growth_prediction AS
SELECT ENCROACHMENT_ID, ASSET_ID, SPECIES, ACTUAL_GROWTH_RATE, PREDICTED_GROWTH_RATE,
       CURRENT_CLEARANCE_FT, PREDICTED_DAYS_TO_CONTACT,
       CASE
         WHEN PREDICTED_GROWTH_RATE >= 4 OR PREDICTED_DAYS_TO_CONTACT < 60 THEN 'HIGH'
         WHEN PREDICTED_GROWTH_RATE >= 2 THEN 'MEDIUM'
         ELSE 'LOW'
       END AS GROWTH_RISK
FROM (
  SELECT ENCROACHMENT_ID, ASSET_ID, SPECIES, CURRENT_CLEARANCE_FT,
         GROWTH_RATE_FT_YEAR AS ACTUAL_GROWTH_RATE,
         ROUND(GROWTH_RATE_FT_YEAR * 1.1, 2) AS PREDICTED_GROWTH_RATE,
         CASE WHEN GROWTH_RATE_FT_YEAR > 0
           THEN CAST(MAX(0, CURRENT_CLEARANCE_FT) * 365 / (GROWTH_RATE_FT_YEAR * 1.1) AS INTEGER)
         END AS PREDICTED_DAYS_TO_CONTACT
  FROM vegetation_encroachment
);

CREATE VIEW IF NOT EXISTS ignition_risk_prediction AS
SELECT r.ASSET_ID, a.ASSET_TYPE,
       r.COMPOSITE_RISK_SCORE AS ACTUAL_RISK,
       r.IGNITION_PROBABILITY AS PREDICTED_IGNITION_RISK,
       a.HEALTH_SCORE AS CONDITION_SCORE,
       (SELECT ROUND(AVG(MAX(0, v.REQUIRED_CLEARANCE_FT - v.CURRENT_CLEARANCE_FT)), 2)
          FROM vegetation_encroachment v WHERE v.ASSET_ID = r.ASSET_ID) AS AVG_CLEARANCE_DEFICIT,
       CASE
         WHEN r.IGNITION_PROBABILITY >= 0.45 THEN 'HIGH'
         WHEN r.IGNITION_PROBABILITY >= 0.25 THEN 'MEDIUM'
         ELSE 'LOW'
       END AS RISK_LEVEL
FROM risk_assessment r
JOIN asset a ON r.ASSET_ID = a.ASSET_ID;

CREATE VIEW IF NOT EXISTS cable_failure_forecast AS
SELECT p.ASSET_ID, a.MATERIAL, a.ASSET_AGE_YEARS, a.MOISTURE_EXPOSURE,
       (SELECT COUNT(*) FROM ami_reading m
          WHERE m.ASSET_ID = p.ASSET_ID AND m.RAIN_CORRELATED_DIP = 1) AS RAIN_CORRELATED_DIPS,
       p.RAIN_CORRELATION_SCORE AS RAIN_VOLTAGE_CORRELATION,
       p.FAILURE_PROBABILITY AS ACTUAL_RISK,
       CASE WHEN p.RAIN_CORRELATION_SCORE > 0.5 THEN 1 ELSE 0 END AS PREDICTED_WATER_TREEING,
       CASE p.RISK_TIER WHEN 'CRITICAL' THEN 'HIGH' WHEN 'HIGH' THEN 'HIGH' WHEN 'MEDIUM' THEN 'MEDIUM' ELSE 'LOW' END
         AS RISK_LEVEL
FROM cable_failure_prediction p
JOIN asset a ON p.ASSET_ID = a.ASSET_ID;

CREATE VIEW IF NOT EXISTS combined_risk_summary AS
SELECT *,
       CASE
         WHEN COMPOSITE_ML_RISK_SCORE >= 55 THEN 'EMERGENCY'
         WHEN COMPOSITE_ML_RISK_SCORE >= 40 THEN 'HIGH'
         WHEN COMPOSITE_ML_RISK_SCORE >= 25 THEN 'MEDIUM'
         ELSE 'LOW'
       END AS MAINTENANCE_PRIORITY
FROM (
  SELECT a.ASSET_ID, a.ASSET_TYPE, a.HEALTH_SCORE AS ACTUAL_CONDITION, a.ASSET_AGE_YEARS,
         COALESCE(l.REGION, 'UNKNOWN') AS REGION, c.FIRE_THREAT_DISTRICT,
         COALESCE(c.CUSTOMERS_SERVED, 0) AS TOTAL_CUSTOMERS,
         h.PREDICTED_HEALTH_SCORE, h.PREDICTED_CONDITION AS HEALTH_STATUS, h.HEALTH_DELTA,
         i.RISK_LEVEL AS IGNITION_RISK_LEVEL, i.AVG_CLEARANCE_DEFICIT,
         w.RISK_LEVEL AS WATER_TREEING_RISK, w.RAIN_VOLTAGE_CORRELATION,
         ROUND((100 - COALESCE(h.PREDICTED_HEALTH_SCORE, 100)) * 0.4
               + COALESCE(i.PREDICTED_IGNITION_RISK, 0) * 40
               + COALESCE(w.ACTUAL_RISK, 0) * 20, 1) AS COMPOSITE_ML_RISK_SCORE
  FROM asset a
  LEFT JOIN circuit c ON a.CIRCUIT_ID = c.CIRCUIT_ID
  LEFT JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
  LEFT JOIN asset_health_prediction h ON a.ASSET_ID = h.ASSET_ID
  LEFT JOIN ignition_risk_prediction i ON a.ASSET_ID = i.ASSET_ID
  LEFT JOIN cable_failure_forecast w ON a.ASSET_ID = w.ASSET_ID
);
`

func (s *SQLite) initSchema() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
