package reports

// Region filters take the region twice: an empty string disables the filter.
const (
	assetsQuery = `
SELECT a.ASSET_ID, a.ASSET_TYPE, a.ASSET_SUBTYPE, a.MATERIAL, a.VOLTAGE_CLASS,
       a.INSTALL_DATE, a.ASSET_AGE_YEARS, a.HEALTH_SCORE, a.RISK_SCORE,
       a.CRITICALITY_FACTOR, a.REPLACEMENT_COST, a.MOISTURE_EXPOSURE,
       a.LAST_INSPECTION_DATE, a.NEXT_INSPECTION_DUE, a.CIRCUIT_ID,
       c.CIRCUIT_NAME, c.FIRE_THREAT_DISTRICT, l.REGION, l.LATITUDE, l.LONGITUDE
FROM asset a
LEFT JOIN circuit c ON a.CIRCUIT_ID = c.CIRCUIT_ID
LEFT JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
WHERE (? = '' OR l.REGION = ?)
ORDER BY a.HEALTH_SCORE ASC NULLS LAST
LIMIT 1000`

	assetDetailQuery = `
SELECT a.ASSET_ID, a.ASSET_TYPE, a.ASSET_SUBTYPE, a.MATERIAL, a.VOLTAGE_CLASS,
       a.INSTALL_DATE, a.ASSET_AGE_YEARS, a.HEALTH_SCORE, a.RISK_SCORE,
       a.CRITICALITY_FACTOR, a.REPLACEMENT_COST, a.MOISTURE_EXPOSURE,
       a.LAST_INSPECTION_DATE, a.NEXT_INSPECTION_DUE, a.CIRCUIT_ID,
       c.CIRCUIT_NAME, c.FIRE_THREAT_DISTRICT, l.REGION
FROM asset a
LEFT JOIN circuit c ON a.CIRCUIT_ID = c.CIRCUIT_ID
LEFT JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
WHERE a.ASSET_ID = ?`

	encroachmentsQuery = `
SELECT v.ENCROACHMENT_ID, v.ASSET_ID, v.SPECIES, v.TREE_HEIGHT_FT,
       v.CURRENT_CLEARANCE_FT, v.REQUIRED_CLEARANCE_FT, v.DAYS_TO_CONTACT,
       v.GROWTH_RATE_FT_YEAR, v.COMPLIANCE_STATUS, v.PRIORITY, v.ESTIMATED_TRIM_COST,
       c.CIRCUIT_NAME, c.FIRE_THREAT_DISTRICT, l.REGION, l.LATITUDE, l.LONGITUDE
FROM vegetation_encroachment v
JOIN asset a ON v.ASSET_ID = a.ASSET_ID
LEFT JOIN circuit c ON a.CIRCUIT_ID = c.CIRCUIT_ID
LEFT JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
WHERE (? = '' OR l.REGION = ?)
ORDER BY v.DAYS_TO_CONTACT ASC NULLS LAST
LIMIT 1000`

	encroachmentForAssetQuery = `
SELECT SPECIES, CURRENT_CLEARANCE_FT, REQUIRED_CLEARANCE_FT, DAYS_TO_CONTACT,
       COMPLIANCE_STATUS, PRIORITY, ESTIMATED_TRIM_COST
FROM vegetation_encroachment
WHERE ASSET_ID = ?
ORDER BY DAYS_TO_CONTACT ASC NULLS LAST
LIMIT 1`

	complianceByRegionQuery = `
SELECT COALESCE(l.REGION, 'Unknown') AS REGION,
       COUNT(*) AS TOTAL,
       SUM(CASE WHEN v.COMPLIANCE_STATUS = 'COMPLIANT' THEN 1 ELSE 0 END) AS COMPLIANT,
       SUM(CASE WHEN v.COMPLIANCE_STATUS IN ('NON_COMPLIANT', 'CRITICAL') THEN 1 ELSE 0 END) AS NON_COMPLIANT
FROM vegetation_encroachment v
JOIN asset a ON v.ASSET_ID = a.ASSET_ID
LEFT JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
GROUP BY l.REGION
ORDER BY l.REGION`

	trimPrioritiesQuery = `
SELECT v.ENCROACHMENT_ID, v.ASSET_ID, v.SPECIES, v.CURRENT_CLEARANCE_FT,
       v.REQUIRED_CLEARANCE_FT, v.DAYS_TO_CONTACT, v.PRIORITY, v.ESTIMATED_TRIM_COST,
       c.CIRCUIT_NAME, c.FIRE_THREAT_DISTRICT, l.REGION
FROM vegetation_encroachment v
JOIN asset a ON v.ASSET_ID = a.ASSET_ID
LEFT JOIN circuit c ON a.CIRCUIT_ID = c.CIRCUIT_ID
LEFT JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
WHERE v.PRIORITY IS NOT NULL
ORDER BY CASE v.PRIORITY
           WHEN 'P1_EMERGENCY' THEN 1
           WHEN 'P2_URGENT' THEN 2
           WHEN 'P3_STANDARD' THEN 3
           ELSE 4
         END,
         v.DAYS_TO_CONTACT ASC NULLS LAST
LIMIT 1000`

	openWorkOrdersQuery = `
SELECT w.WORK_ORDER_ID, w.ASSET_ID, w.WORK_TYPE, w.PRIORITY, w.STATUS, w.DESCRIPTION,
       w.ESTIMATED_HOURS, w.ESTIMATED_COST, w.SCHEDULED_DATE, w.CREATED_AT, l.REGION
FROM work_order w
LEFT JOIN asset a ON w.ASSET_ID = a.ASSET_ID
LEFT JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
WHERE w.STATUS IN ('PENDING', 'SCHEDULED', 'IN_PROGRESS')
ORDER BY CASE w.PRIORITY
           WHEN 'P1_EMERGENCY' THEN 1
           WHEN 'P2_URGENT' THEN 2
           WHEN 'P3_STANDARD' THEN 3
           ELSE 4
         END,
         w.SCHEDULED_DATE ASC
LIMIT 500`

	workOrdersForAssetQuery = `
SELECT WORK_ORDER_ID, WORK_TYPE, PRIORITY, STATUS, SCHEDULED_DATE
FROM work_order
WHERE ASSET_ID = ?
ORDER BY CREATED_AT DESC
LIMIT 20`

	riskForAssetQuery = `
SELECT ASSESSMENT_DATE, FIRE_RISK_SCORE, IGNITION_PROBABILITY, CONSEQUENCE_SCORE,
       COMPOSITE_RISK_SCORE, RISK_TIER
FROM risk_assessment
WHERE ASSET_ID = ?
ORDER BY ASSESSMENT_DATE DESC
LIMIT 1`

	ignitionRiskQuery = `
SELECT r.ASSET_ID, r.RISK_TIER, r.IGNITION_PROBABILITY, r.FIRE_RISK_SCORE,
       r.COMPOSITE_RISK_SCORE, a.ASSET_TYPE, c.FIRE_THREAT_DISTRICT, l.REGION
FROM risk_assessment r
JOIN asset a ON r.ASSET_ID = a.ASSET_ID
LEFT JOIN circuit c ON a.CIRCUIT_ID = c.CIRCUIT_ID
LEFT JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
ORDER BY r.COMPOSITE_RISK_SCORE DESC
LIMIT 1000`

	circuitsQuery = `
SELECT c.CIRCUIT_ID, c.CIRCUIT_NAME, c.SUBSTATION_NAME, c.FIRE_THREAT_DISTRICT,
       c.CUSTOMERS_SERVED, c.CRITICAL_FACILITIES_COUNT, c.CIRCUIT_MILES, c.PSPS_ELIGIBLE, l.REGION
FROM circuit c
LEFT JOIN location l ON c.PRIMARY_LOCATION_ID = l.LOCATION_ID
ORDER BY c.CUSTOMERS_SERVED DESC`

	weatherQuery = `
SELECT FORECAST_ID, REGION, FORECAST_DATE, WIND_SPEED_MPH, HUMIDITY_PCT, RED_FLAG_WARNING
FROM weather_forecast
ORDER BY REGION, FORECAST_DATE`

	waterTreeingQuery = `
SELECT p.ASSET_ID, a.MATERIAL, a.MOISTURE_EXPOSURE, a.ASSET_AGE_YEARS, a.HEALTH_SCORE,
       p.RAIN_CORRELATION_SCORE, p.FAILURE_PROBABILITY, p.CUSTOMER_IMPACT_COUNT,
       p.ESTIMATED_REPLACEMENT_COST, p.RISK_TIER, c.CIRCUIT_NAME, l.REGION
FROM cable_failure_prediction p
JOIN asset a ON p.ASSET_ID = a.ASSET_ID
LEFT JOIN circuit c ON a.CIRCUIT_ID = c.CIRCUIT_ID
LEFT JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
WHERE a.ASSET_TYPE = 'CABLE_UNDERGROUND'
ORDER BY p.FAILURE_PROBABILITY DESC
LIMIT 200`

	rainDipsQuery = `
SELECT READING_ID, ASSET_ID, METER_ID, READING_TIMESTAMP, VOLTAGE, RAINFALL_MM
FROM ami_reading
WHERE RAIN_CORRELATED_DIP = 1
ORDER BY READING_TIMESTAMP DESC
LIMIT 100`

	undergroundCablesQuery = `
SELECT ASSET_ID, MATERIAL, MOISTURE_EXPOSURE, ASSET_AGE_YEARS, HEALTH_SCORE
FROM asset
WHERE ASSET_TYPE = 'CABLE_UNDERGROUND'`

	cablePredictionsQuery = `
SELECT ASSET_ID, RAIN_CORRELATION_SCORE, FAILURE_PROBABILITY, CUSTOMER_IMPACT_COUNT, RISK_TIER
FROM cable_failure_prediction
ORDER BY FAILURE_PROBABILITY DESC`

	amiReadingsQuery = `
SELECT ASSET_ID, VOLTAGE_DIP_FLAG, RAIN_CORRELATED_DIP
FROM ami_reading
ORDER BY READING_TIMESTAMP DESC
LIMIT 5000`

	insertWorkOrderQuery = `
INSERT INTO work_order (WORK_ORDER_ID, ASSET_ID, WORK_TYPE, PRIORITY, STATUS, DESCRIPTION,
                        ESTIMATED_COST, SCHEDULED_DATE, CREATED_AT)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	listWorkOrdersQuery = `
SELECT WORK_ORDER_ID, ASSET_ID, WORK_TYPE, PRIORITY, STATUS, DESCRIPTION,
       ESTIMATED_COST, SCHEDULED_DATE, CREATED_AT
FROM work_order
WHERE (? = '' OR STATUS = ?)
ORDER BY CREATED_AT DESC
LIMIT ?`

	assetHealthPredictionsQuery = `
SELECT ASSET_ID, ASSET_TYPE, ACTUAL_HEALTH_SCORE, PREDICTED_HEALTH_SCORE,
       HEALTH_DELTA, PREDICTED_CONDITION
FROM asset_health_prediction
ORDER BY PREDICTED_HEALTH_SCORE ASC
LIMIT ?`

	growthPredictionsQuery = `
SELECT ENCROACHMENT_ID, ASSET_ID, SPECIES, ACTUAL_GROWTH_RATE, PREDICTED_GROWTH_RATE,
       CURRENT_CLEARANCE_FT, PREDICTED_DAYS_TO_CONTACT, GROWTH_RISK
FROM vegetation_growth_prediction
ORDER BY PREDICTED_DAYS_TO_CONTACT ASC NULLS LAST
LIMIT ?`

	ignitionPredictionsQuery = `
SELECT ASSET_ID, ASSET_TYPE, ACTUAL_RISK, PREDICTED_IGNITION_RISK, CONDITION_SCORE,
       AVG_CLEARANCE_DEFICIT, RISK_LEVEL
FROM ignition_risk_prediction
ORDER BY CASE RISK_LEVEL WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 ELSE 3 END,
         CONDITION_SCORE ASC NULLS LAST
LIMIT ?`

	cableForecastQuery = `
SELECT ASSET_ID, MATERIAL, ASSET_AGE_YEARS, MOISTURE_EXPOSURE, RAIN_CORRELATED_DIPS,
       RAIN_VOLTAGE_CORRELATION, ACTUAL_RISK, PREDICTED_WATER_TREEING, RISK_LEVEL
FROM cable_failure_forecast
ORDER BY PREDICTED_WATER_TREEING DESC, RAIN_CORRELATED_DIPS DESC
LIMIT ?`

	modelCountsQuery = `
SELECT 'asset_health' AS MODEL, COUNT(*) AS TOTAL,
       SUM(CASE WHEN PREDICTED_CONDITION = 'CRITICAL' THEN 1 ELSE 0 END) AS FLAGGED,
       0 AS URGENT
FROM asset_health_prediction
UNION ALL
SELECT 'vegetation_growth', COUNT(*),
       SUM(CASE WHEN GROWTH_RISK = 'HIGH' THEN 1 ELSE 0 END),
       SUM(CASE WHEN PREDICTED_DAYS_TO_CONTACT < 30 THEN 1 ELSE 0 END)
FROM vegetation_growth_prediction
UNION ALL
SELECT 'ignition_risk', COUNT(*),
       SUM(CASE WHEN RISK_LEVEL = 'HIGH' THEN 1 ELSE 0 END), 0
FROM ignition_risk_prediction
UNION ALL
SELECT 'cable_failure', COUNT(*),
       SUM(CASE WHEN RISK_LEVEL = 'HIGH' THEN 1 ELSE 0 END), 0
FROM cable_failure_forecast`

	combinedRiskQuery = `
SELECT ASSET_ID, ASSET_TYPE, ACTUAL_CONDITION, ASSET_AGE_YEARS, REGION, FIRE_THREAT_DISTRICT,
       TOTAL_CUSTOMERS, PREDICTED_HEALTH_SCORE, HEALTH_STATUS, HEALTH_DELTA,
       IGNITION_RISK_LEVEL, AVG_CLEARANCE_DEFICIT, WATER_TREEING_RISK, RAIN_VOLTAGE_CORRELATION,
       COMPOSITE_ML_RISK_SCORE, MAINTENANCE_PRIORITY
FROM combined_risk_summary
ORDER BY COMPOSITE_ML_RISK_SCORE DESC
LIMIT ?`

	combinedRiskByRegionQuery = `
SELECT REGION,
       COUNT(*) AS ASSET_COUNT,
       ROUND(AVG(COMPOSITE_ML_RISK_SCORE), 1) AS AVG_RISK_SCORE,
       SUM(CASE WHEN MAINTENANCE_PRIORITY = 'EMERGENCY' THEN 1 ELSE 0 END) AS EMERGENCY_COUNT,
       SUM(CASE WHEN MAINTENANCE_PRIORITY = 'HIGH' THEN 1 ELSE 0 END) AS HIGH_PRIORITY_COUNT,
       SUM(CASE WHEN HEALTH_STATUS = 'CRITICAL' THEN 1 ELSE 0 END) AS CRITICAL_HEALTH_COUNT,
       SUM(CASE WHEN IGNITION_RISK_LEVEL = 'HIGH' THEN 1 ELSE 0 END) AS HIGH_IGNITION_COUNT,
       SUM(CASE WHEN WATER_TREEING_RISK = 'HIGH' THEN 1 ELSE 0 END) AS WATER_TREEING_COUNT
FROM combined_risk_summary
GROUP BY REGION
ORDER BY AVG_RISK_SCORE DESC`

	urgentActionsQuery = `
SELECT ASSET_ID, ASSET_TYPE, REGION, FIRE_THREAT_DISTRICT, HEALTH_STATUS, IGNITION_RISK_LEVEL,
       WATER_TREEING_RISK, COMPOSITE_ML_RISK_SCORE, MAINTENANCE_PRIORITY, TOTAL_CUSTOMERS
FROM combined_risk_summary
WHERE MAINTENANCE_PRIORITY IN ('EMERGENCY', 'HIGH')
ORDER BY CASE MAINTENANCE_PRIORITY WHEN 'EMERGENCY' THEN 1 ELSE 2 END,
         COMPOSITE_ML_RISK_SCORE DESC
LIMIT ?`

	riskMapQuery = `
SELECT a.ASSET_ID, a.ASSET_TYPE, a.HEALTH_SCORE, r.COMPOSITE_RISK_SCORE, r.RISK_TIER,
       c.FIRE_THREAT_DISTRICT, l.REGION, l.LATITUDE, l.LONGITUDE
FROM asset a
LEFT JOIN risk_assessment r ON a.ASSET_ID = r.ASSET_ID
JOIN circuit c ON a.CIRCUIT_ID = c.CIRCUIT_ID
JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
WHERE l.LATITUDE IS NOT NULL AND l.LONGITUDE IS NOT NULL
LIMIT 5000`
)

// Per-asset forecast lookups; %s takes the placeholder list.
const (
	healthForAssetsQuery = `
SELECT ASSET_ID, PREDICTED_HEALTH_SCORE, PREDICTED_CONDITION, HEALTH_DELTA
FROM asset_health_prediction
WHERE ASSET_ID IN (%s)`

	growthForAssetsQuery = `
SELECT ASSET_ID, PREDICTED_DAYS_TO_CONTACT, GROWTH_RISK, PREDICTED_GROWTH_RATE, SPECIES
FROM vegetation_growth_prediction
WHERE ASSET_ID IN (%s)
ORDER BY PREDICTED_DAYS_TO_CONTACT ASC NULLS LAST`

	ignitionForAssetsQuery = `
SELECT ASSET_ID, RISK_LEVEL, CONDITION_SCORE, AVG_CLEARANCE_DEFICIT
FROM ignition_risk_prediction
WHERE ASSET_ID IN (%s)`

	cableForAssetsQuery = `
SELECT ASSET_ID, PREDICTED_WATER_TREEING, RAIN_VOLTAGE_CORRELATION, RISK_LEVEL,
       RAIN_CORRELATED_DIPS, MOISTURE_EXPOSURE
FROM cable_failure_forecast
WHERE ASSET_ID IN (%s)`

	combinedForAssetsQuery = `
SELECT ASSET_ID, COMPOSITE_ML_RISK_SCORE, MAINTENANCE_PRIORITY, HEALTH_STATUS,
       IGNITION_RISK_LEVEL, WATER_TREEING_RISK
FROM combined_risk_summary
WHERE ASSET_ID IN (%s)`
)
