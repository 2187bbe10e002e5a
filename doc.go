/*
lumi provides tooling for evaluating and preparing object detection datasets
kept in the lumi CSV annotation format, where each row describes one bounding
box as image_id,xmin,ymin,xmax,ymax,label with an extra prob column for model
predictions.

The confusion matrix evaluator matches predicted boxes against ground truth
boxes by Intersection over Union (IoU) and reports the confusion matrix, its
row normalized form and per class precision/recall, optionally rendering the
matrix as a figure.

Supporting commands split annotated images into train/val sets, stitch image
directories into mosaics and overlay bounding box annotations onto images.

See cmd/lumi for the command line interface.
*/
package lumi
